package digitizer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseGenerator draws n noise values with the given mean and standard deviation.
type NoiseGenerator interface {
	Generate(n int, mean, stdev float64) []float64
}

// GaussianNoise is a NoiseGenerator with its own random source. It is not
// safe for concurrent use, give each worker its own.
type GaussianNoise struct {
	src rand.Source
}

func NewGaussianNoise(seed uint64) *GaussianNoise {
	return &GaussianNoise{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (g *GaussianNoise) Generate(n int, mean, stdev float64) []float64 {
	out := make([]float64, n)
	if stdev <= 0 {
		for i := range out {
			out[i] = mean
		}
		return out
	}
	dist := distuv.Normal{Mu: mean, Sigma: stdev, Src: g.src}
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// GenerateNoise fills the noise sequence for the current sampling window.
// The mean is taken as the pedestal of the channel.
func (s *Signal) GenerateNoise(gen NoiseGenerator, mean, stdev float64) error {
	if err := s.params.Validate(); err != nil {
		return err
	}
	if math.IsNaN(stdev) || stdev < 0 {
		return &ParameterError{Name: "noise stdev", Value: stdev}
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return &ParameterError{Name: "noise mean", Value: mean}
	}
	s.noise = gen.Generate(s.params.Samples(), mean, stdev)
	s.pedestal = mean
	return nil
}

// SetNoise injects an external noise sequence. An empty sequence digitizes
// without noise. The pedestal is reset to 0, use SetPedestal for a nonzero
// baseline.
func (s *Signal) SetNoise(noise []float64) {
	s.noise = append([]float64(nil), noise...)
	s.pedestal = 0
}

func (s *Signal) Noise() []float64 { return append([]float64(nil), s.noise...) }

// Pedestal is the baseline subtracted when decoding.
func (s *Signal) Pedestal() float64     { return s.pedestal }
func (s *Signal) SetPedestal(p float64) { s.pedestal = p }

// Dgtz returns the samples of the last Digitize call.
func (s *Signal) Dgtz() []int { return append([]int(nil), s.dgtz...) }

// DigitizedParams are the parameters of the last Digitize call. Decode
// reads these, not the current ones.
func (s *Signal) DigitizedParams() Params { return s.digitized }

// adcCode rounds an amplitude to the ADC range [0, adcMax].
func adcCode(v float64, adcMax int) int {
	if !(v > 0) {
		return 0
	}
	r := math.Round(v)
	if r >= float64(adcMax) {
		return adcMax
	}
	return int(r)
}

// Digitize samples the waveform over [tmin, tmax), applies the gain, adds the
// noise and converts to ADC codes. Previous samples are replaced.
func (s *Signal) Digitize() ([]int, error) {
	p := s.params
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("digitizing hit %d: %w", s.id.Hitn, err)
	}
	n := p.Samples()
	if len(s.noise) != 0 && len(s.noise) != n {
		return nil, fmt.Errorf("digitizing hit %d: %w", s.id.Hitn, &NoiseLengthError{Want: n, Got: len(s.noise)})
	}

	wf := s.Waveform()
	dgtz := make([]int, n)
	for i := range dgtz {
		t := p.Tmin + float64(i)*p.SamplingTime
		v := p.ElectronYield * wf(t)
		if len(s.noise) > 0 {
			v += s.noise[i]
		}
		dgtz[i] = adcCode(v, p.AdcMax)
	}
	s.dgtz = dgtz
	s.digitized = p

	if verbosity > 2 {
		message := fmt.Sprintf("Hit %d digitized: %d samples, %d steps", s.id.Hitn, n, len(s.steps))
		logger.Info(message, "digitizer")
	}
	return s.Dgtz(), nil
}
