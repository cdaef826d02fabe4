package digitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleStepSignal is a signal of one step of energy keV whose charge
// reaches the readout at arrival ns.
func singleStepSignal(t *testing.T, energy float64, arrival float64) *Signal {
	t.Helper()
	s, err := NewSignalFromSteps(
		HitID{Layer: 11, Component: 1},
		[]Step{{Energy: energy, Time: 0}},
		[]DriftEstimate{{DriftTime: arrival}},
	)
	require.NoError(t, err)
	return s
}

func TestWaveform_Shape(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)
	wf := s.Waveform()

	for tt := 0.0; tt < 6000; tt += 7 {
		require.GreaterOrEqual(t, wf(tt), 0.0, "t=%g", tt)
	}
	// peak shifted by the delay
	assert.Greater(t, wf(1500), wf(1490))
	assert.Greater(t, wf(1500), wf(1510))
	assert.InDelta(t, 10*landauPeak/240, wf(1500), 1e-12)
}

func TestWaveform_Pure(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)
	wf := s.Waveform()
	before := wf(1400)

	s.SetDelay(0)
	s.SetLandauWidth(50)
	assert.Equal(t, before, wf(1400))
	assert.NotEqual(t, before, s.Waveform()(1400))
}

func TestWaveform_Superposition(t *testing.T) {
	t.Parallel()
	a := singleStepSignal(t, 10, 500)
	b := singleStepSignal(t, 4, 900)
	both, err := NewSignalFromSteps(HitID{},
		[]Step{{Energy: 10}, {Energy: 4}},
		[]DriftEstimate{{DriftTime: 500}, {DriftTime: 900}})
	require.NoError(t, err)

	wa, wb, wab := a.Waveform(), b.Waveform(), both.Waveform()
	for _, tt := range []float64{1000, 1400, 1800, 2500} {
		assert.InDelta(t, wa(tt)+wb(tt), wab(tt), 1e-12)
	}
}

func TestPulses(t *testing.T) {
	t.Parallel()
	s, err := NewSignalFromSteps(HitID{},
		[]Step{{Energy: 1, Time: 10}, {Energy: 1}, {Energy: 1}, {Energy: 1}},
		[]DriftEstimate{
			{DriftTime: 500},
			{DriftTime: 10000},
			{DriftTime: 300, Width: 100},
			{DriftTime: 300, Width: 1000},
		})
	require.NoError(t, err)

	pulses := s.Pulses()
	require.Len(t, pulses, 4)
	assert.Equal(t, Pulse{Energy: 1, Peak: 510, Width: 240}, pulses[0])
	assert.Equal(t, 6000.0, pulses[1].Peak)
	assert.Equal(t, 100.0, pulses[2].Width)
	assert.Equal(t, maxLandauWidth, pulses[3].Width)

	s.SetLandauWidth(1000)
	assert.Equal(t, maxLandauWidth, s.Pulses()[0].Width)
}

func TestSmearDriftTimes(t *testing.T) {
	t.Parallel()
	s, err := NewSignalFromSteps(HitID{},
		[]Step{{Energy: 1}, {Energy: 1}},
		[]DriftEstimate{{DriftTime: 500, SigmaTime: 3}, {DriftTime: 700}})
	require.NoError(t, err)

	smeared := s.SmearDriftTimes(NewGaussianNoise(3))
	assert.Equal(t, []float64{500, 700}, s.DriftTime())
	assert.NotEqual(t, 500.0, smeared.DriftTime()[0])
	assert.InDelta(t, 500.0, smeared.DriftTime()[0], 30)
	assert.Equal(t, 700.0, smeared.DriftTime()[1])
}
