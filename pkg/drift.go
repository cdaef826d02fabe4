package digitizer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Wire is the sense wire of a cell given by its two endpoints in mm.
type Wire struct {
	Start r3.Vec `json:"start"`
	End   r3.Vec `json:"end"`
}

// DriftEstimate is what the drift equations predict for one step.
type DriftEstimate struct {
	Doca       float64 // mm
	Z          float64 // mm along the wire, from its midpoint
	DriftTime  float64 // ns
	DriftAngle float64 // rad
	SigmaTime  float64 // ns
	SigmaPhi   float64 // rad
	SigmaZ     float64 // mm
	// Width overrides the pulse width of the step when positive.
	Width   float64
	Clamped bool
}

// Doca returns the distance of closest approach of p to the wire line and
// the position of that point along the wire.
func Doca(p r3.Vec, w Wire) (doca float64, z float64, err error) {
	axis := r3.Sub(w.End, w.Start)
	length := r3.Norm(axis)
	if !(length > 0) {
		return 0, 0, &GeometryError{Step: -1, Quantity: "wire length", Value: length, Limit: 0}
	}
	u := r3.Scale(1/length, axis)
	doca = r3.Norm(r3.Cross(r3.Sub(p, w.Start), u))
	mid := r3.Scale(0.5, r3.Add(w.Start, w.End))
	z = r3.Dot(r3.Sub(p, mid), u)
	return doca, z, nil
}

// horner evaluates c[0] + c[1]x + c[2]x² + ...
func horner(x float64, c ...float64) float64 {
	res := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		res = res*x + c[i]
	}
	return res
}

// DriftTerm is the doca dependent part of the drift time.
func (p DriftParams) DriftTerm(doca float64) float64 {
	return horner(doca, 0, p.AT, p.BT, p.CT, p.DT)
}

// Slowness is d(DriftTerm)/d(doca) in ns/mm.
func (p DriftParams) Slowness(doca float64) float64 {
	return horner(doca, p.AT, 2*p.BT, 3*p.CT, 4*p.DT)
}

func (p DriftParams) AngleTerm(doca float64) float64 {
	return horner(doca, 0, p.APhi, p.BPhi, p.CPhi, p.DPhi)
}

func (p DriftParams) SigmaZ(doca float64) float64 {
	v := p.AZ*doca + p.BZ*doca*doca
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Estimate evaluates the drift equations for one step of the given cell.
func (c *Calibration) Estimate(doca, z float64, layer, component int) (DriftEstimate, error) {
	var est DriftEstimate

	if math.IsNaN(doca) || doca < 0 {
		return est, &GeometryError{Step: -1, Quantity: "doca", Value: doca, Limit: 0}
	}
	if doca > c.Geometry.CellRadius {
		if !c.ClampDoca {
			return est, &GeometryError{Step: -1, Quantity: "doca", Value: doca, Limit: c.Geometry.CellRadius}
		}
		doca = c.Geometry.CellRadius
		est.Clamped = true
	}
	halfLength := c.Geometry.DriftLength / 2
	if math.IsNaN(z) || math.Abs(z) > halfLength {
		if !c.ClampDoca || math.IsNaN(z) {
			return est, &GeometryError{Step: -1, Quantity: "z", Value: z, Limit: halfLength}
		}
		z = math.Copysign(halfLength, z)
		est.Clamped = true
	}

	p := c.Drift
	est.Doca = doca
	est.Z = z
	est.DriftTime = p.TZero + c.TimeShift(layer, component) + p.StageTime() + p.DriftTerm(doca)
	est.DriftAngle = p.StageAngle() + p.AngleTerm(doca)

	est.SigmaZ = p.SigmaZ(doca)
	gapT := p.StageSigmaTime()
	sigmaT := est.SigmaZ * p.Slowness(doca)
	est.SigmaTime = math.Sqrt(gapT*gapT + sigmaT*sigmaT)

	gapPhi := p.StageSigmaPhi()
	sigmaPhi := 0.0
	if c.Geometry.PadWidth > 0 {
		sigmaPhi = est.SigmaZ * c.Geometry.PhiPerPad() / c.Geometry.PadWidth
	}
	est.SigmaPhi = math.Sqrt(gapPhi*gapPhi + sigmaPhi*sigmaPhi)
	return est, nil
}
