package digitizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// sampleTime converts a fractional sample index to ns.
func (s *Signal) sampleTime(k float64) float64 {
	return s.digitized.Tmin + k*s.digitized.SamplingTime
}

// baselined returns the digitized samples with the pedestal removed.
func (s *Signal) baselined() []float64 {
	x := make([]float64, len(s.dgtz))
	for i, v := range s.dgtz {
		x[i] = float64(v) - s.pedestal
	}
	return x
}

// ApplyCFD returns the time in ns at which the digitized signal fires a
// constant fraction discriminator. With delay 0 it is the interpolated time
// the signal first reaches fraction of its maximum. With delay > 0 it is the
// zero crossing of fraction*x[i] - x[i-delay], delay in samples.
func (s *Signal) ApplyCFD(fraction float64, delay int) (float64, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return 0, &ParameterError{Name: "CFD fraction", Value: fraction}
	}
	if delay < 0 {
		return 0, &ParameterError{Name: "CFD delay", Value: float64(delay)}
	}
	if len(s.steps) == 0 {
		return 0, ErrEmptyHit
	}
	if len(s.dgtz) == 0 {
		return 0, ErrNotDigitized
	}

	x := s.baselined()
	peak := floats.MaxIdx(x)
	amplitude := x[peak]
	if amplitude <= 0 {
		return 0, fmt.Errorf("hit %d: %w", s.id.Hitn, ErrNoThresholdCrossing)
	}

	if delay == 0 {
		threshold := fraction * amplitude
		for i := 0; i <= peak; i++ {
			if x[i] < threshold {
				continue
			}
			if i == 0 {
				return s.sampleTime(0), nil
			}
			frac := (threshold - x[i-1]) / (x[i] - x[i-1])
			return s.sampleTime(float64(i-1) + frac), nil
		}
		// unreachable while fraction <= 1
		return 0, fmt.Errorf("hit %d: %w", s.id.Hitn, ErrNoThresholdCrossing)
	}

	bipolar := make([]float64, len(x))
	for i := range x {
		j := i - delay
		if j < 0 {
			j = 0
		}
		bipolar[i] = fraction*x[i] - x[j]
	}
	start := floats.MaxIdx(bipolar[:peak+1])
	if bipolar[start] <= 0 {
		return 0, fmt.Errorf("hit %d: %w", s.id.Hitn, ErrNoThresholdCrossing)
	}
	for i := start + 1; i < len(bipolar); i++ {
		if bipolar[i] > 0 {
			continue
		}
		frac := bipolar[i-1] / (bipolar[i-1] - bipolar[i])
		return s.sampleTime(float64(i-1) + frac), nil
	}
	return 0, fmt.Errorf("hit %d: %w", s.id.Hitn, ErrNoThresholdCrossing)
}

// Decoded keys. A key is absent when its value is undefined for the hit.
const (
	KeyCFDTime     = "t_cfd"
	KeyDriftTime   = "t_drift" // arrival at the readout, step time + drift time
	KeyAdcMax      = "adc_max"
	KeyTimeMax     = "t_max"
	KeyAdcIntegral = "adc_integral"
	KeyEnergy      = "e_dep"
	KeyMCTime      = "mctime"
	KeyMCEtot      = "mcEtot"
)

// Decode extracts the observables of the hit from the last digitization.
func (s *Signal) Decode() map[string]float64 {
	output := map[string]float64{
		KeyMCEtot: s.MCEtot(),
	}
	if t, ok := s.MCTime(); ok {
		output[KeyMCTime] = t
	}
	if len(s.steps) == 0 {
		output[KeyEnergy] = 0
		return output
	}
	if len(s.dgtz) == 0 {
		return output
	}

	x := s.baselined()
	peak := floats.MaxIdx(x)
	output[KeyAdcMax] = float64(s.dgtz[peak])
	output[KeyTimeMax] = s.sampleTime(float64(peak))
	integral := floats.Sum(x)
	output[KeyAdcIntegral] = integral
	output[KeyEnergy] = integral * s.digitized.SamplingTime / s.digitized.ElectronYield

	t, err := s.ApplyCFD(s.cfd.Fraction, s.cfd.Delay)
	if err != nil {
		if verbosity > 1 {
			logger.Info(fmt.Sprintf("No CFD time: %v", err), "decoder")
		}
		return output
	}
	output[KeyCFDTime] = t
	if s.cfd.Delay == 0 {
		width := math.Min(s.digitized.LandauWidth, maxLandauWidth)
		output[KeyDriftTime] = t - s.digitized.Delay - leadingEdgeOffset(s.cfd.Fraction, width)
	}
	return output
}
