package digitizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Step is one energy deposit along the particle path.
type Step struct {
	Energy float64 // keV
	Time   float64 // ns
	Pos    r3.Vec  // mm
}

// HitID identifies a hit. Layer is 10*superlayer + layer.
type HitID struct {
	Sector    int
	Layer     int
	Component int
	Hitn      int
}

// Hit is the raw hit as handed over by the hit processing framework.
// Edep is in MeV, times in ns and positions in mm.
type Hit struct {
	Superlayer int       `json:"superlayer"`
	Layer      int       `json:"layer"`
	Component  int       `json:"component"`
	Wire       Wire      `json:"wire"`
	Edep       []float64 `json:"edep"`
	Time       []float64 `json:"time"`
	Pos        []r3.Vec  `json:"pos"`
}

// Params are the digitization settings of a signal.
type Params struct {
	SamplingTime  float64 `json:"sampling_time"`  // ns
	ElectronYield float64 `json:"electron_yield"` // ADC counts per keV/ns
	AdcMax        int     `json:"adc_max"`
	Tmin          float64 `json:"tmin"`  // ns
	Tmax          float64 `json:"tmax"`  // ns
	Delay         float64 `json:"delay"` // ns
	LandauWidth   float64 `json:"landau_width"`
}

func DefaultParams() Params {
	return Params{
		SamplingTime:  44,
		ElectronYield: 9500,
		AdcMax:        4095, // 12 bits
		Tmin:          0,
		Tmax:          6000,
		Delay:         1000,
		LandauWidth:   240,
	}
}

// maxSamples bounds the length of a digitization window.
const maxSamples = 1 << 24

// Samples is the number of digitized values, ceil((tmax-tmin)/samplingTime).
func (p Params) Samples() int {
	return int(math.Ceil((p.Tmax - p.Tmin) / p.SamplingTime))
}

func (p Params) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	switch {
	case !finite(p.SamplingTime) || p.SamplingTime <= 0:
		return &ParameterError{Name: "samplingTime", Value: p.SamplingTime}
	case !finite(p.ElectronYield) || p.ElectronYield <= 0:
		return &ParameterError{Name: "electronYield", Value: p.ElectronYield}
	case p.AdcMax <= 0:
		return &ParameterError{Name: "adc_max", Value: float64(p.AdcMax)}
	case !finite(p.Tmin):
		return &ParameterError{Name: "tmin", Value: p.Tmin}
	case !finite(p.Tmax) || p.Tmax <= p.Tmin:
		return &ParameterError{Name: "tmax", Value: p.Tmax}
	case (p.Tmax-p.Tmin)/p.SamplingTime > maxSamples:
		return &ParameterError{Name: "samplingTime", Value: p.SamplingTime}
	case !finite(p.Delay):
		return &ParameterError{Name: "delay", Value: p.Delay}
	case !finite(p.LandauWidth) || p.LandauWidth <= 0:
		return &ParameterError{Name: "Landau_width", Value: p.LandauWidth}
	}
	return nil
}

// CFD configures the discriminator used by Decode.
type CFD struct {
	Fraction float64 `json:"cfd_fraction"`
	Delay    int     `json:"cfd_delay"` // samples
}

func DefaultCFD() CFD {
	return CFD{Fraction: 0.5, Delay: 0}
}

// Signal is the electronic signal of one hit.
type Signal struct {
	id        HitID
	steps     []Step
	estimates []DriftEstimate
	clamped   []int

	params Params
	cfd    CFD

	dgtz []int
	// digitized holds the parameters dgtz was produced with.
	digitized Params
	noise     []float64
	pedestal  float64
}

// NewSignal builds the signal of the hitn-th hit and evaluates the drift
// equations of every step.
func NewSignal(hit Hit, hitn int, cal *Calibration) (*Signal, error) {
	nsteps := len(hit.Edep)
	if len(hit.Time) != nsteps || len(hit.Pos) != nsteps {
		return nil, fmt.Errorf("%w: %d energies, %d times, %d positions",
			ErrMalformedHit, nsteps, len(hit.Time), len(hit.Pos))
	}

	id := HitID{
		Sector:    0,
		Layer:     10*hit.Superlayer + hit.Layer,
		Component: hit.Component,
		Hitn:      hitn,
	}

	steps := make([]Step, nsteps)
	estimates := make([]DriftEstimate, nsteps)
	var clamped []int
	var errs []error
	for s := 0; s < nsteps; s++ {
		steps[s] = Step{
			Energy: hit.Edep[s] * 1000, // MeV to keV
			Time:   hit.Time[s],
			Pos:    hit.Pos[s],
		}
		if steps[s].Energy < 0 || math.IsNaN(steps[s].Energy) {
			errs = append(errs, fmt.Errorf("%w: step %d has energy %g", ErrMalformedHit, s, steps[s].Energy))
			continue
		}
		doca, z, err := Doca(hit.Pos[s], hit.Wire)
		if err == nil {
			estimates[s], err = cal.Estimate(doca, z, id.Layer, id.Component)
		}
		if err != nil {
			var gerr *GeometryError
			if errors.As(err, &gerr) {
				withStep := *gerr
				withStep.Step = s
				err = &withStep
			}
			errs = append(errs, err)
			continue
		}
		if estimates[s].Clamped {
			clamped = append(clamped, s)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("hit %d (layer %d, component %d): %w", hitn, id.Layer, id.Component, errors.Join(errs...))
	}

	if len(clamped) > 0 && verbosity > 1 {
		message := fmt.Sprintf("Hit %d: %d steps clamped to the cell envelope", hitn, len(clamped))
		logger.Info(message, "signal")
	}

	return &Signal{
		id:        id,
		steps:     steps,
		estimates: estimates,
		clamped:   clamped,
		params:    DefaultParams(),
		cfd:       DefaultCFD(),
	}, nil
}

// NewSignalFromSteps builds a signal from steps whose drift estimates were
// computed elsewhere.
func NewSignalFromSteps(id HitID, steps []Step, estimates []DriftEstimate) (*Signal, error) {
	if len(steps) != len(estimates) {
		return nil, fmt.Errorf("%w: %d steps, %d drift estimates", ErrMalformedHit, len(steps), len(estimates))
	}
	for s, st := range steps {
		if st.Energy < 0 || math.IsNaN(st.Energy) {
			return nil, fmt.Errorf("%w: step %d has energy %g", ErrMalformedHit, s, st.Energy)
		}
	}
	return &Signal{
		id:        id,
		steps:     append([]Step(nil), steps...),
		estimates: append([]DriftEstimate(nil), estimates...),
		params:    DefaultParams(),
		cfd:       DefaultCFD(),
	}, nil
}

// Clone returns a copy sharing no mutable state, for re-digitization in
// another goroutine.
func (s *Signal) Clone() *Signal {
	c := *s
	c.steps = append([]Step(nil), s.steps...)
	c.estimates = append([]DriftEstimate(nil), s.estimates...)
	c.clamped = append([]int(nil), s.clamped...)
	c.dgtz = append([]int(nil), s.dgtz...)
	c.noise = append([]float64(nil), s.noise...)
	return &c
}

func (s *Signal) ID() HitID      { return s.id }
func (s *Signal) Hitn() int      { return s.id.Hitn }
func (s *Signal) Sector() int    { return s.id.Sector }
func (s *Signal) Layer() int     { return s.id.Layer }
func (s *Signal) Component() int { return s.id.Component }
func (s *Signal) Nsteps() int    { return len(s.steps) }

func (s *Signal) Steps() []Step { return append([]Step(nil), s.steps...) }

func (s *Signal) Estimates() []DriftEstimate {
	return append([]DriftEstimate(nil), s.estimates...)
}

// ClampedSteps lists the steps whose doca was clamped to the cell envelope.
func (s *Signal) ClampedSteps() []int { return append([]int(nil), s.clamped...) }

func (s *Signal) Edep() []float64 {
	out := make([]float64, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.Energy
	}
	return out
}

func (s *Signal) G4Time() []float64 {
	out := make([]float64, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.Time
	}
	return out
}

func (s *Signal) Doca() []float64 {
	out := make([]float64, len(s.estimates))
	for i, e := range s.estimates {
		out[i] = e.Doca
	}
	return out
}

func (s *Signal) DriftTime() []float64 {
	out := make([]float64, len(s.estimates))
	for i, e := range s.estimates {
		out[i] = e.DriftTime
	}
	return out
}

// The parameters below only matter for the next call to Digitize.

func (s *Signal) Params() Params     { return s.params }
func (s *Signal) SetParams(p Params) { s.params = p }

func (s *Signal) SetSamplingTime(v float64)  { s.params.SamplingTime = v }
func (s *Signal) SetElectronYield(v float64) { s.params.ElectronYield = v }
func (s *Signal) SetAdcMax(v int)            { s.params.AdcMax = v }
func (s *Signal) SetTmin(v float64)          { s.params.Tmin = v }
func (s *Signal) SetTmax(v float64)          { s.params.Tmax = v }
func (s *Signal) SetDelay(v float64)         { s.params.Delay = v }
func (s *Signal) SetLandauWidth(v float64)   { s.params.LandauWidth = v }

func (s *Signal) CFD() CFD     { return s.cfd }
func (s *Signal) SetCFD(c CFD) { s.cfd = c }

// MCTime is the earliest step time, false for an empty hit.
func (s *Signal) MCTime() (float64, bool) {
	if len(s.steps) == 0 {
		return 0, false
	}
	return floats.Min(s.G4Time()), true
}

// MCEtot is the total deposited energy in keV.
func (s *Signal) MCEtot() float64 {
	if len(s.steps) == 0 {
		return 0
	}
	return floats.Sum(s.Edep())
}
