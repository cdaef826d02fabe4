package digitizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDigitize_SampleCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sampling float64
		tmin     float64
		tmax     float64
		want     int
	}{
		{"default window", 44, 0, 6000, 137},
		{"exact division", 50, 0, 6000, 120},
		{"shifted window", 10, 1000, 1995, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := singleStepSignal(t, 10, 500)
			s.SetSamplingTime(tt.sampling)
			s.SetTmin(tt.tmin)
			s.SetTmax(tt.tmax)
			dgtz, err := s.Digitize()
			require.NoError(t, err)
			assert.Len(t, dgtz, tt.want)
			assert.Equal(t, tt.want, s.Params().Samples())
		})
	}
}

func TestDigitize_Range(t *testing.T) {
	t.Parallel()

	t.Run("saturates", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 10, 500)
		s.SetNoise(filled(137, 1e6))
		dgtz, err := s.Digitize()
		require.NoError(t, err)
		for _, v := range dgtz {
			assert.Equal(t, 4095, v)
		}
	})

	t.Run("floors at zero", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 10, 500)
		s.SetNoise(filled(137, -1e6))
		dgtz, err := s.Digitize()
		require.NoError(t, err)
		for _, v := range dgtz {
			assert.Equal(t, 0, v)
		}
	})

	t.Run("large deposit", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 1e5, 500)
		s.SetAdcMax(255)
		dgtz, err := s.Digitize()
		require.NoError(t, err)
		for _, v := range dgtz {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 255)
		}
		assert.Contains(t, dgtz, 255)
	})
}

func TestAdcCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, adcCode(math.NaN(), 4095))
	assert.Equal(t, 0, adcCode(-3, 4095))
	assert.Equal(t, 2, adcCode(1.5, 4095))
	assert.Equal(t, 4095, adcCode(math.Inf(1), 4095))
	assert.Equal(t, 4095, adcCode(4095.2, 4095))
}

func TestDigitize_Errors(t *testing.T) {
	t.Parallel()

	t.Run("noise length", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 10, 500)
		s.SetNoise(filled(10, 0))
		_, err := s.Digitize()
		assert.ErrorIs(t, err, ErrInvalidParameter)
		var nerr *NoiseLengthError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, NoiseLengthError{Want: 137, Got: 10}, *nerr)
		assert.Empty(t, s.Dgtz())
	})

	t.Run("too many samples", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 10, 500)
		s.SetSamplingTime(1e-300)
		_, err := s.Digitize()
		var perr *ParameterError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "samplingTime", perr.Name)
		assert.ErrorIs(t, s.GenerateNoise(NewGaussianNoise(1), 0, 1), ErrInvalidParameter)
		assert.Empty(t, s.Dgtz())
	})

	t.Run("invalid sampling", func(t *testing.T) {
		t.Parallel()
		s := singleStepSignal(t, 10, 500)
		s.SetSamplingTime(0)
		_, err := s.Digitize()
		var perr *ParameterError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "samplingTime", perr.Name)
	})
}

func TestDigitize_ReplacesSamples(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)
	first, err := s.Digitize()
	require.NoError(t, err)

	s.SetSamplingTime(22)
	assert.Len(t, s.Dgtz(), 137, "parameter change must not touch stored samples")

	second, err := s.Digitize()
	require.NoError(t, err)
	assert.Len(t, first, 137)
	assert.Len(t, second, 273)
	assert.Equal(t, second, s.Dgtz())
}

func TestDecode_UsesDigitizedParams(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)
	_, err := s.Digitize()
	require.NoError(t, err)
	before := s.Decode()

	s.SetSamplingTime(10)
	s.SetTmin(-2000)
	s.SetElectronYield(1)
	s.SetDelay(0)
	s.SetLandauWidth(50)
	assert.Equal(t, before, s.Decode())
	assert.Equal(t, DefaultParams(), s.DigitizedParams())

	_, err = s.Digitize()
	require.NoError(t, err)
	assert.Equal(t, s.Params(), s.DigitizedParams())
	assert.NotEqual(t, before[KeyEnergy], s.Decode()[KeyEnergy])
}

func TestSetNoise_ResetsPedestal(t *testing.T) {
	t.Parallel()
	clean := singleStepSignal(t, 10, 500)
	_, err := clean.Digitize()
	require.NoError(t, err)

	s := singleStepSignal(t, 10, 500)
	require.NoError(t, s.GenerateNoise(NewGaussianNoise(1), 300, 0))
	s.SetNoise(filled(137, 0))
	assert.Zero(t, s.Pedestal())
	_, err = s.Digitize()
	require.NoError(t, err)
	assert.Equal(t, clean.Decode(), s.Decode())

	s.SetNoise(filled(137, 300))
	s.SetPedestal(300)
	_, err = s.Digitize()
	require.NoError(t, err)
	assert.InDelta(t, clean.Decode()[KeyEnergy], s.Decode()[KeyEnergy], 1e-9)
}

func TestDigitize_Noiseless(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)
	dgtz, err := s.Digitize()
	require.NoError(t, err)

	wf := s.Waveform()
	for i, v := range dgtz {
		want := int(math.Round(9500 * wf(float64(i)*44)))
		assert.Equal(t, want, v, "sample %d", i)
	}
}

func TestGaussianNoise(t *testing.T) {
	t.Parallel()

	a := NewGaussianNoise(42).Generate(500, 300, 5)
	b := NewGaussianNoise(42).Generate(500, 300, 5)
	c := NewGaussianNoise(43).Generate(500, 300, 5)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	sum := 0.0
	for _, v := range a {
		sum += v
	}
	assert.InDelta(t, 300, sum/500, 1.5)

	assert.Equal(t, filled(4, 300), NewGaussianNoise(1).Generate(4, 300, 0))
}

func TestGenerateNoise(t *testing.T) {
	t.Parallel()
	s := singleStepSignal(t, 10, 500)

	require.NoError(t, s.GenerateNoise(NewGaussianNoise(1), 300, 2))
	assert.Len(t, s.Noise(), 137)
	assert.Equal(t, 300.0, s.Pedestal())

	err := s.GenerateNoise(NewGaussianNoise(1), 300, -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	err = s.GenerateNoise(NewGaussianNoise(1), math.NaN(), 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	s.SetSamplingTime(-1)
	err = s.GenerateNoise(NewGaussianNoise(1), 300, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
