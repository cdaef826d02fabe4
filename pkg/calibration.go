package digitizer

import (
	"fmt"
	"math"
	"sync"
)

// Geometry holds the fixed detector constants, lengths in mm.
type Geometry struct {
	PadWidth    float64 `json:"pad_w"`
	PadLength   float64 `json:"pad_l"`
	PadSpacing  float64 `json:"pad_s"`
	DriftLength float64 `json:"rtpc_l"`
	CellRadius  float64 `json:"cell_radius"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		PadWidth:    2.79,
		PadLength:   4.0,
		PadSpacing:  80.0,
		DriftLength: 300.0,
		CellRadius:  4.0,
	}
}

// PhiPerPad is the azimuthal pitch of one readout pad in rad.
func (g Geometry) PhiPerPad() float64 {
	return g.PadWidth / g.PadSpacing
}

// DriftParams are the coefficients of the drift and diffusion equations.
// Times in ns, angles in rad, doca in mm.
type DriftParams struct {
	// drift time
	AT float64 `json:"a_t" db:"a_t"`
	BT float64 `json:"b_t" db:"b_t"`
	CT float64 `json:"c_t" db:"c_t"`
	DT float64 `json:"d_t" db:"d_t"`
	// drift angle
	APhi float64 `json:"a_phi" db:"a_phi"`
	BPhi float64 `json:"b_phi" db:"b_phi"`
	CPhi float64 `json:"c_phi" db:"c_phi"`
	DPhi float64 `json:"d_phi" db:"d_phi"`
	// longitudinal diffusion
	AZ float64 `json:"a_z" db:"a_z"`
	BZ float64 `json:"b_z" db:"b_z"`

	T2GEM2 float64 `json:"t_2GEM2" db:"t_2GEM2"`
	T2GEM3 float64 `json:"t_2GEM3" db:"t_2GEM3"`
	T2PAD  float64 `json:"t_2PAD" db:"t_2PAD"`

	SigmaT2GEM2 float64 `json:"sigma_t_2GEM2" db:"sigma_t_2GEM2"`
	SigmaT2GEM3 float64 `json:"sigma_t_2GEM3" db:"sigma_t_2GEM3"`
	SigmaT2PAD  float64 `json:"sigma_t_2PAD" db:"sigma_t_2PAD"`

	Phi2GEM2 float64 `json:"phi_2GEM2" db:"phi_2GEM2"`
	Phi2GEM3 float64 `json:"phi_2GEM3" db:"phi_2GEM3"`
	Phi2PAD  float64 `json:"phi_2PAD" db:"phi_2PAD"`

	SigmaPhi2GEM2 float64 `json:"sigma_phi_2GEM2" db:"sigma_phi_2GEM2"`
	SigmaPhi2GEM3 float64 `json:"sigma_phi_2GEM3" db:"sigma_phi_2GEM3"`
	SigmaPhi2PAD  float64 `json:"sigma_phi_2PAD" db:"sigma_phi_2PAD"`

	TZero float64 `json:"tpc_tzero" db:"TPC_TZERO"`
}

func DefaultDriftParams() DriftParams {
	return DriftParams{
		AT: 140.0,
		BT: 25.0,
		CT: -2.0,
		DT: 0.05,

		APhi: 0.0123,
		BPhi: -0.0011,
		CPhi: 0.0001,
		DPhi: 0.0,

		AZ: 0.035,
		BZ: 0.0004,

		T2GEM2: 29.6,
		T2GEM3: 29.6,
		T2PAD:  39.9,

		SigmaT2GEM2: 0.873,
		SigmaT2GEM3: 0.678,
		SigmaT2PAD:  0.758,

		Phi2GEM2: 0.0049,
		Phi2GEM3: 0.0049,
		Phi2PAD:  0.0080,

		SigmaPhi2GEM2: 0.0012,
		SigmaPhi2GEM3: 0.0009,
		SigmaPhi2PAD:  0.0011,

		TZero: 0.0,
	}
}

// StageTime is t_2END, the transport time through the amplification and
// readout stages.
func (p DriftParams) StageTime() float64 {
	return p.T2GEM2 + p.T2GEM3 + p.T2PAD
}

// StageAngle is phi_2END.
func (p DriftParams) StageAngle() float64 {
	return p.Phi2GEM2 + p.Phi2GEM3 + p.Phi2PAD
}

// StageSigmaTime is sigma_t_gap, the stage spreads added in quadrature.
func (p DriftParams) StageSigmaTime() float64 {
	return math.Sqrt(p.SigmaT2GEM2*p.SigmaT2GEM2 + p.SigmaT2GEM3*p.SigmaT2GEM3 + p.SigmaT2PAD*p.SigmaT2PAD)
}

func (p DriftParams) StageSigmaPhi() float64 {
	return math.Sqrt(p.SigmaPhi2GEM2*p.SigmaPhi2GEM2 + p.SigmaPhi2GEM3*p.SigmaPhi2GEM3 + p.SigmaPhi2PAD*p.SigmaPhi2PAD)
}

type cellKey struct {
	layer     int
	component int
}

// TimeShift is one per-cell time offset as stored in the conditions database.
type TimeShift struct {
	Layer     int     `db:"layer"`
	Component int     `db:"component"`
	Shift     float64 `db:"shift"`
}

// Calibration is the set of constants valid for one run. It is never
// modified after NewCalibration and may be shared between workers.
type Calibration struct {
	RunNumber int
	Geometry  Geometry
	Drift     DriftParams
	// ClampDoca clamps out of range steps to the cell envelope instead of
	// rejecting the hit. Clamped steps are flagged on their estimate.
	ClampDoca  bool
	timeShifts map[cellKey]float64
}

func NewCalibration(runNumber int, geometry Geometry, drift DriftParams, shifts []TimeShift, clampDoca bool) *Calibration {
	c := &Calibration{
		RunNumber:  runNumber,
		Geometry:   geometry,
		Drift:      drift,
		ClampDoca:  clampDoca,
		timeShifts: make(map[cellKey]float64, len(shifts)),
	}
	for _, s := range shifts {
		c.timeShifts[cellKey{s.Layer, s.Component}] = s.Shift
	}
	return c
}

// TimeShift returns shift_t for a cell, 0 when the cell has none.
func (c *Calibration) TimeShift(layer, component int) float64 {
	return c.timeShifts[cellKey{layer, component}]
}

// CalibrationSource provides the constants of a run.
type CalibrationSource interface {
	Load(runNumber int) (*Calibration, error)
}

// DefaultSource serves the built-in constants for every run.
type DefaultSource struct {
	ClampDoca bool
}

func (s DefaultSource) Load(runNumber int) (*Calibration, error) {
	return NewCalibration(runNumber, DefaultGeometry(), DefaultDriftParams(), nil, s.ClampDoca), nil
}

type runEntry struct {
	once sync.Once
	cal  *Calibration
	err  error
}

// CalibrationStore loads the constants of each run once, whatever the number
// of workers asking for them.
type CalibrationStore struct {
	source CalibrationSource
	mu     sync.Mutex
	runs   map[int]*runEntry
}

func NewCalibrationStore(source CalibrationSource) *CalibrationStore {
	return &CalibrationStore{
		source: source,
		runs:   make(map[int]*runEntry),
	}
}

func (c *CalibrationStore) Load(runNumber int) (*Calibration, error) {
	c.mu.Lock()
	entry, ok := c.runs[runNumber]
	if !ok {
		entry = &runEntry{}
		c.runs[runNumber] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		if verbosity > 0 {
			logger.Info(fmt.Sprintf("Loading calibration for run %d", runNumber), "calibration")
		}
		entry.cal, entry.err = c.source.Load(runNumber)
		if entry.err != nil {
			entry.err = fmt.Errorf("error loading calibration for run %d: %w", runNumber, entry.err)
			logger.Error(entry.err.Error())
		}
	})
	return entry.cal, entry.err
}
