package digitizer

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/floats"
)

// HitDigitizer is the per-hit pipeline: drift estimates, analog waveform,
// digitization and decoding.
type HitDigitizer interface {
	Estimates() []DriftEstimate
	Waveform() func(t float64) float64
	Digitize() ([]int, error)
	Decode() map[string]float64
}

var _ HitDigitizer = (*Signal)(nil)

// HitProcess is the contract with the hit processing framework.
type HitProcess interface {
	InitWithRunNumber(runNumber int) error
	// IntegrateDgt returns the digitized information integrated over the hit.
	IntegrateDgt(hit Hit, hitn int) (map[string]float64, error)
	// MultiDgt returns the digitized samples of the hit.
	MultiDgt(hit Hit, hitn int) (map[string][]int, error)
	// ChargeTime returns charge and time information per step.
	ChargeTime(hit Hit, hitn int) (map[int][]float64, error)
	// Voltage returns the pulse amplitude at forTime of a charge arriving at time.
	Voltage(charge, time, forTime float64) float64
}

// Settings are the per run digitization choices of the hit process.
type Settings struct {
	Params     Params
	CFD        CFD
	NoiseMean  float64
	NoiseStdev float64
	// SmearDriftTimes applies the diffusion spread to each step before digitizing.
	SmearDriftTimes bool
}

func DefaultSettings() Settings {
	return Settings{
		Params:     DefaultParams(),
		CFD:        DefaultCFD(),
		NoiseMean:  0,
		NoiseStdev: 0,
	}
}

// AhdcHitProcess digitizes AHDC hits. The calibration is shared with every
// other process reading the same store; the noise generator is not, so one
// AhdcHitProcess serves one goroutine.
type AhdcHitProcess struct {
	store    *CalibrationStore
	settings Settings
	noise    NoiseGenerator
	cal      *Calibration
}

var _ HitProcess = (*AhdcHitProcess)(nil)

func NewAhdcHitProcess(store *CalibrationStore, settings Settings, noise NoiseGenerator) *AhdcHitProcess {
	return &AhdcHitProcess{
		store:    store,
		settings: settings,
		noise:    noise,
	}
}

func (p *AhdcHitProcess) InitWithRunNumber(runNumber int) error {
	if p.cal != nil && p.cal.RunNumber == runNumber {
		return nil
	}
	cal, err := p.store.Load(runNumber)
	if err != nil {
		return err
	}
	p.cal = cal
	return nil
}

func (p *AhdcHitProcess) Calibration() *Calibration { return p.cal }

// Process builds, digitizes and returns the signal of one hit.
func (p *AhdcHitProcess) Process(hit Hit, hitn int) (*Signal, error) {
	if p.cal == nil {
		return nil, fmt.Errorf("hit %d: hit process used before InitWithRunNumber", hitn)
	}
	signal, err := NewSignal(hit, hitn, p.cal)
	if err != nil {
		return nil, err
	}
	signal.SetParams(p.settings.Params)
	signal.SetCFD(p.settings.CFD)
	if p.settings.SmearDriftTimes {
		signal = signal.SmearDriftTimes(p.noise)
	}
	if err := signal.GenerateNoise(p.noise, p.settings.NoiseMean, p.settings.NoiseStdev); err != nil {
		return nil, err
	}
	if _, err := signal.Digitize(); err != nil {
		return nil, err
	}
	return signal, nil
}

func (p *AhdcHitProcess) IntegrateDgt(hit Hit, hitn int) (map[string]float64, error) {
	signal, err := p.Process(hit, hitn)
	if err != nil {
		return nil, err
	}
	return IntegratedOutput(signal), nil
}

func (p *AhdcHitProcess) MultiDgt(hit Hit, hitn int) (map[string][]int, error) {
	signal, err := p.Process(hit, hitn)
	if err != nil {
		return nil, err
	}
	return MultiOutput(signal), nil
}

func (p *AhdcHitProcess) ChargeTime(hit Hit, hitn int) (map[int][]float64, error) {
	if p.cal == nil {
		return nil, fmt.Errorf("hit %d: hit process used before InitWithRunNumber", hitn)
	}
	signal, err := NewSignal(hit, hitn, p.cal)
	if err != nil {
		return nil, err
	}
	return ChargeTimeOutput(signal), nil
}

func (p *AhdcHitProcess) Voltage(charge, time, forTime float64) float64 {
	params := p.settings.Params
	pulse := Pulse{
		Energy: charge,
		Peak:   clamp(time, params.Tmin, params.Tmax),
		Width:  min(params.LandauWidth, maxLandauWidth),
	}
	return params.ElectronYield * pulse.At(forTime-params.Delay)
}

// IntegratedOutput maps a digitized signal to the framework's per hit values.
func IntegratedOutput(s *Signal) map[string]float64 {
	decoded := s.Decode()
	output := map[string]float64{
		"hitn":         float64(s.Hitn()),
		"sector":       float64(s.Sector()),
		"layer":        float64(s.Layer()),
		"component":    float64(s.Component()),
		"ADC_order":    0,
		"ADC_ped":      s.Pedestal(),
		"ADC_ADC":      decoded[KeyAdcMax],
		"ADC_integral": decoded[KeyAdcIntegral],
		KeyMCEtot:      decoded[KeyMCEtot],
		KeyEnergy:      decoded[KeyEnergy],
	}
	if t, ok := decoded[KeyCFDTime]; ok {
		output["ADC_time"] = t
	}
	if t, ok := decoded[KeyDriftTime]; ok {
		output[KeyDriftTime] = t
	}
	if t, ok := decoded[KeyMCTime]; ok {
		output[KeyMCTime] = t
	}
	if s.Nsteps() > 0 {
		output["doca"] = floats.Min(s.Doca())
	}

	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Hit %d: %s", s.Hitn(), formatValues(output)), "hitprocess")
	}
	return output
}

func MultiOutput(s *Signal) map[string][]int {
	noise := s.Noise()
	rounded := make([]int, len(noise))
	for i, v := range noise {
		rounded[i] = int(math.Round(v))
	}
	return map[string][]int{
		"wf":    s.Dgtz(),
		"noise": rounded,
	}
}

// ChargeTimeOutput gives for each step index: energy, arrival time, doca and drift time.
func ChargeTimeOutput(s *Signal) map[int][]float64 {
	steps := s.Steps()
	estimates := s.Estimates()
	output := make(map[int][]float64, len(steps))
	for i, st := range steps {
		output[i] = []float64{st.Energy, st.Time + estimates[i].DriftTime, estimates[i].Doca, estimates[i].DriftTime}
	}
	return output
}

func formatValues(values map[string]float64) string {
	keys := maps.Keys(values)
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, values[k])
	}
	return strings.Join(parts, " ")
}
