package fixed

import "math"

// QA is an 8-bit wrapping angle: the range 0..255 maps onto 0..2*pi.
// Arithmetic on QA wraps naturally via uint8 overflow; signed differences
// use the u8-wrapping rule (see U8SubWrap).
type QA uint8

// Sub returns the signed angular distance from b to a, as a QA delta
// representable over [-128, 127].
func (a QA) Sub(b QA) int8 {
	return U8SubWrap(uint8(a), uint8(b))
}

// Add returns a+delta, wrapping naturally.
func (a QA) Add(delta int8) QA {
	return QA(int8(a) + delta)
}

// RotateToward rotates a by at most maxStep (always moving the short way
// around) toward target, returning the new angle.
func (a QA) RotateToward(target QA, maxStep uint8) QA {
	delta := target.Sub(a)
	if delta == 0 {
		return a
	}
	if delta > 0 {
		if uint8(delta) <= maxStep {
			return target
		}
		return a.Add(int8(maxStep))
	}
	neg := -delta
	if uint8(neg) <= maxStep {
		return target
	}
	return a.Add(-int8(maxStep))
}

// trigTableSize is the number of entries in the cos/sin lookup table, one
// per possible QA value.
const trigTableSize = 256

var cosTable [trigTableSize]QW
var sinTable [trigTableSize]QW

func init() {
	for i := 0; i < trigTableSize; i++ {
		theta := 2 * math.Pi * float64(i) / float64(trigTableSize)
		cosTable[i] = MakeQWFraction(math.Cos(theta))
		sinTable[i] = MakeQWFraction(math.Sin(theta))
	}
}

// Cos returns the fixed-point cosine of a, read from a table built once at
// startup. Trig is never computed from math.Cos/Sin on the simulation hot
// path — that would reintroduce libm drift across platforms.
func (a QA) Cos() QW {
	return cosTable[uint8(a)]
}

// Sin returns the fixed-point sine of a.
func (a QA) Sin() QW {
	return sinTable[uint8(a)]
}

// Unit returns the unit direction vector (cos, sin) for a, scaled by mag.
func (a QA) Unit(mag QW) QWPos {
	return QWPos{X: mag.Mul(a.Cos()), Y: mag.Mul(a.Sin())}
}
