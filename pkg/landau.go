package digitizer

import "math"

// landauMode is the position of the maximum of the standard Landau density.
const landauMode = -0.22278298

// maxLandauWidth bounds the width parameter of a pulse, in ns.
const maxLandauWidth = 400.0

// Rational approximations of the Landau density (CERNLIB G110 DENLAN).
var (
	landauP1 = [5]float64{0.4259894875, -0.1249762550, 0.03984243700, -0.006298287635, 0.001511162253}
	landauQ1 = [5]float64{1.0, -0.3388260629, 0.09594393323, -0.01608042283, 0.003778942063}
	landauP2 = [5]float64{0.1788541609, 0.1173957403, 0.01488850518, -0.001394989411, 0.0001283617211}
	landauQ2 = [5]float64{1.0, 0.7428795082, 0.3153932961, 0.06694219548, 0.008790609714}
	landauP3 = [5]float64{0.1788544503, 0.09359161662, 0.006325387654, 0.00006611667319, -0.000002031049101}
	landauQ3 = [5]float64{1.0, 0.6097809921, 0.2560616665, 0.04746722384, 0.006957301675}
	landauP4 = [5]float64{0.9874054407, 118.6723273, 849.2794360, -743.7792444, 427.0262186}
	landauQ4 = [5]float64{1.0, 106.8615961, 337.6496214, 2016.712389, 1597.063511}
	landauP5 = [5]float64{1.003675074, 167.5702434, 4789.711289, 21217.86767, -22324.94910}
	landauQ5 = [5]float64{1.0, 156.9424537, 3745.310488, 9834.698876, 66924.28357}
	landauP6 = [5]float64{1.000827619, 664.9143136, 62972.92665, 475554.6998, -5743609.109}
	landauQ6 = [5]float64{1.0, 651.4101098, 56974.73333, 165917.4725, -2815759.939}
	landauA1 = [3]float64{0.04166666667, -0.01996527778, 0.02709538966}
	landauA2 = [2]float64{-1.845568670, -4.284640743}
)

func ratio(p, q [5]float64, x float64) float64 {
	return horner(x, p[:]...) / horner(x, q[:]...)
}

// landau is the standard Landau density φ(λ).
func landau(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -5.5:
		u := math.Exp(v + 1.0)
		if u < 1e-10 {
			return 0
		}
		ue := math.Exp(-1 / u)
		us := math.Sqrt(u)
		return 0.3989422803 * (ue / us) * (1 + (landauA1[0]+(landauA1[1]+landauA1[2]*u)*u)*u)
	case v < -1:
		u := math.Exp(-v - 1)
		return math.Exp(-u) * math.Sqrt(u) * ratio(landauP1, landauQ1, v)
	case v < 1:
		return ratio(landauP2, landauQ2, v)
	case v < 5:
		return ratio(landauP3, landauQ3, v)
	case v < 12:
		u := 1 / v
		return u * u * ratio(landauP4, landauQ4, u)
	case v < 50:
		u := 1 / v
		return u * u * ratio(landauP5, landauQ5, u)
	case v < 300:
		u := 1 / v
		return u * u * ratio(landauP6, landauQ6, u)
	case math.IsInf(v, 1):
		return 0
	default:
		u := 1 / (v - v*math.Log(v)/(v+1))
		return u * u * (1 + (landauA2[0]+landauA2[1]*u)*u)
	}
}

// landauPeak is φ at its maximum.
var landauPeak = landau(landauMode)

// landauLeadingEdge returns λ on the rising side where φ(λ) = fraction·φmax.
func landauLeadingEdge(fraction float64) float64 {
	if fraction >= 1 {
		return landauMode
	}
	target := fraction * landauPeak
	lo, hi := -10.0, landauMode
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if landau(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Pulse is the response of the front end to the charge of one step.
// It integrates to Energy over time and reaches its maximum at Peak for any Width.
type Pulse struct {
	Energy float64 // keV
	Peak   float64 // ns
	Width  float64 // ns
}

func (p Pulse) At(t float64) float64 {
	if !(p.Width > 0) {
		return 0
	}
	return p.Energy * landau((t-p.Peak)/p.Width+landauMode) / p.Width
}

// leadingEdgeOffset is the time from the maximum of a pulse back to the
// point where it crosses fraction of that maximum, negative.
func leadingEdgeOffset(fraction, width float64) float64 {
	return (landauLeadingEdge(fraction) - landauMode) * width
}
