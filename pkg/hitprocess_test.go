package digitizer

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type countingSource struct {
	calls atomic.Int32
}

func (c *countingSource) Load(runNumber int) (*Calibration, error) {
	c.calls.Add(1)
	return DefaultSource{}.Load(runNumber)
}

type failingSource struct{}

var errSourceDown = errors.New("source down")

func (failingSource) Load(int) (*Calibration, error) {
	return nil, errSourceDown
}

func pedestalSettings() Settings {
	settings := DefaultSettings()
	settings.NoiseMean = 300
	return settings
}

func newTestProcess(t *testing.T, store *CalibrationStore, settings Settings, seed uint64) *AhdcHitProcess {
	t.Helper()
	p := NewAhdcHitProcess(store, settings, NewGaussianNoise(seed))
	require.NoError(t, p.InitWithRunNumber(1))
	return p
}

func sampleHits(n int) []Hit {
	hits := make([]Hit, n)
	for i := range hits {
		doca := 0.3 + 3.5*float64(i)/float64(n)
		hits[i] = Hit{
			Superlayer: 1 + i%5,
			Layer:      1 + i%2,
			Component:  i,
			Wire:       testWire,
			Edep:       []float64{0.002, 0.003 + 0.001*float64(i)},
			Time:       []float64{1, 2},
			Pos:        []r3.Vec{{X: doca, Z: 10}, {Y: doca * 0.9, Z: -40}},
		}
	}
	return hits
}

func TestAhdcHitProcess_NotInitialized(t *testing.T) {
	t.Parallel()
	p := NewAhdcHitProcess(NewCalibrationStore(DefaultSource{}), DefaultSettings(), NewGaussianNoise(1))

	_, err := p.IntegrateDgt(sampleHits(1)[0], 0)
	assert.Error(t, err)
	_, err = p.ChargeTime(sampleHits(1)[0], 0)
	assert.Error(t, err)
	assert.Nil(t, p.Calibration())
}

func TestAhdcHitProcess_IntegrateDgt(t *testing.T) {
	t.Parallel()
	p := newTestProcess(t, NewCalibrationStore(DefaultSource{}), pedestalSettings(), 1)

	output, err := p.IntegrateDgt(sampleHits(1)[0], 5)
	require.NoError(t, err)

	for _, key := range []string{
		"hitn", "sector", "layer", "component", "ADC_order", "ADC_ADC", "ADC_time",
		"ADC_ped", "ADC_integral", KeyDriftTime, KeyMCTime, KeyMCEtot, KeyEnergy, "doca",
	} {
		assert.Contains(t, output, key)
	}
	assert.Equal(t, 5.0, output["hitn"])
	assert.Equal(t, 11.0, output["layer"])
	assert.Equal(t, 300.0, output["ADC_ped"])
	assert.Equal(t, 1.0, output[KeyMCTime])
	assert.InDelta(t, 5.0, output[KeyMCEtot], 1e-9)
	assert.InDelta(t, 0.27, output["doca"], 1e-9)
	assert.Greater(t, output["ADC_time"], 500.0)
	assert.Less(t, output["ADC_time"], 1300.0)
}

func TestAhdcHitProcess_MultiDgt(t *testing.T) {
	t.Parallel()
	p := newTestProcess(t, NewCalibrationStore(DefaultSource{}), pedestalSettings(), 1)

	output, err := p.MultiDgt(sampleHits(1)[0], 0)
	require.NoError(t, err)
	assert.Len(t, output["wf"], 137)
	assert.Len(t, output["noise"], 137)
	assert.Equal(t, 300, output["noise"][0])
	assert.GreaterOrEqual(t, output["wf"][0], 300)
}

func TestAhdcHitProcess_ChargeTime(t *testing.T) {
	t.Parallel()
	p := newTestProcess(t, NewCalibrationStore(DefaultSource{}), DefaultSettings(), 1)
	hit := sampleHits(1)[0]

	output, err := p.ChargeTime(hit, 0)
	require.NoError(t, err)
	require.Len(t, output, 2)

	signal, err := NewSignal(hit, 0, p.Calibration())
	require.NoError(t, err)
	est := signal.Estimates()
	for step, values := range output {
		require.Len(t, values, 4)
		assert.InDelta(t, hit.Edep[step]*1000, values[0], 1e-9)
		assert.InDelta(t, hit.Time[step]+est[step].DriftTime, values[1], 1e-9)
		assert.InDelta(t, est[step].Doca, values[2], 1e-9)
		assert.InDelta(t, est[step].DriftTime, values[3], 1e-9)
	}
}

func TestAhdcHitProcess_Voltage(t *testing.T) {
	t.Parallel()
	p := newTestProcess(t, NewCalibrationStore(DefaultSource{}), DefaultSettings(), 1)

	assert.InDelta(t, 9500*10*landauPeak/240, p.Voltage(10, 500, 1500), 1e-9)
	assert.Greater(t, p.Voltage(10, 500, 1500), p.Voltage(10, 500, 1200))
	assert.Zero(t, p.Voltage(0, 500, 1500))
}

func TestAhdcHitProcess_ConcurrentMatchesSerial(t *testing.T) {
	t.Parallel()
	hits := sampleHits(16)
	store := NewCalibrationStore(DefaultSource{})

	serialProcess := newTestProcess(t, store, pedestalSettings(), 1)
	serial := make([]map[string]float64, len(hits))
	for i, hit := range hits {
		out, err := serialProcess.IntegrateDgt(hit, i)
		require.NoError(t, err)
		serial[i] = out
	}

	concurrent := make([]map[string]float64, len(hits))
	errs := make([]error, len(hits))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		p := newTestProcess(t, store, pedestalSettings(), uint64(w))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				concurrent[i], errs[i] = p.IntegrateDgt(hits[i], i)
			}
		}()
	}
	for i := range hits {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i := range hits {
		require.NoError(t, errs[i])
	}
	if diff := cmp.Diff(serial, concurrent, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("concurrent output differs (-serial +concurrent):\n%s", diff)
	}
}

func TestCalibrationStore_LoadsOnce(t *testing.T) {
	t.Parallel()
	source := &countingSource{}
	store := NewCalibrationStore(source)

	cals := make([]*Calibration, 16)
	var wg sync.WaitGroup
	for i := range cals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := NewAhdcHitProcess(store, DefaultSettings(), NewGaussianNoise(uint64(i)))
			if err := p.InitWithRunNumber(42); err == nil {
				cals[i] = p.Calibration()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
	for _, cal := range cals {
		require.NotNil(t, cal)
		assert.Same(t, cals[0], cal)
		assert.Equal(t, 42, cal.RunNumber)
	}

	_, err := store.Load(43)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestCalibrationStore_Error(t *testing.T) {
	t.Parallel()
	store := NewCalibrationStore(failingSource{})
	p := NewAhdcHitProcess(store, DefaultSettings(), NewGaussianNoise(1))

	err := p.InitWithRunNumber(3)
	assert.ErrorIs(t, err, errSourceDown)
	assert.Contains(t, err.Error(), "run 3")
	assert.Nil(t, p.Calibration())
}

func TestAhdcHitProcess_RunChange(t *testing.T) {
	t.Parallel()
	source := &countingSource{}
	p := NewAhdcHitProcess(NewCalibrationStore(source), DefaultSettings(), NewGaussianNoise(1))

	for _, run := range []int{1, 1, 2, 2, 1} {
		require.NoError(t, p.InitWithRunNumber(run))
		assert.Equal(t, run, p.Calibration().RunNumber, "run %d", run)
	}
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestFormatValues(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a=1 b=2.5 c=-3", formatValues(map[string]float64{"c": -3, "a": 1, "b": 2.5}))
}
