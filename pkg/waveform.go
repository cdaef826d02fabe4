package digitizer

import "math"

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Pulses returns one pulse per step for the current parameters. The peak is
// the arrival time at the readout, kept inside [tmin, tmax].
func (s *Signal) Pulses() []Pulse {
	pulses := make([]Pulse, len(s.steps))
	for i, st := range s.steps {
		width := s.params.LandauWidth
		if w := s.estimates[i].Width; w > 0 {
			width = w
		}
		pulses[i] = Pulse{
			Energy: st.Energy,
			Peak:   clamp(st.Time+s.estimates[i].DriftTime, s.params.Tmin, s.params.Tmax),
			Width:  math.Min(width, maxLandauWidth),
		}
	}
	return pulses
}

// Waveform returns the analog response of the hit as a function of time, in
// keV/ns. Later parameter changes do not affect a returned function.
func (s *Signal) Waveform() func(t float64) float64 {
	pulses := s.Pulses()
	delay := s.params.Delay
	return func(t float64) float64 {
		res := 0.0
		for _, p := range pulses {
			res += p.At(t - delay)
		}
		return res
	}
}

// SmearDriftTimes returns a copy of the signal with every drift time moved by
// a Gaussian offset of width SigmaTime.
func (s *Signal) SmearDriftTimes(gen NoiseGenerator) *Signal {
	c := s.Clone()
	c.dgtz = nil
	for i := range c.estimates {
		sigma := c.estimates[i].SigmaTime
		if sigma <= 0 {
			continue
		}
		c.estimates[i].DriftTime += gen.Generate(1, 0, sigma)[0]
	}
	return c
}
