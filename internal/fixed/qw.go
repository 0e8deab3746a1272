package fixed

// QW is a deterministic fixed-point world-unit scalar: a signed integer
// holding value*Scale, matching the source engine's 1/65536-style fixed
// point. All arithmetic here is pure integer math so that results are
// bit-identical across platforms — never substitute floating point in the
// simulation hot path.
type QW int64

// Shift is the number of fractional bits; Scale = 1<<Shift.
const (
	Shift = 16
	Scale = 1 << Shift
)

// MakeQW converts a whole number of world units to QW.
func MakeQW(units int64) QW {
	return QW(units << Shift)
}

// MakeQWFraction converts a float64 to QW, truncating toward zero. Only used at
// startup/config boundaries (LUT construction, parsing config values) —
// never in the per-tick simulation path.
func MakeQWFraction(v float64) QW {
	return QW(v * Scale)
}

// Add returns a+b.
func (a QW) Add(b QW) QW { return a + b }

// Sub returns a-b.
func (a QW) Sub(b QW) QW { return a - b }

// Mul returns a*b with the fractional scale divided back out.
func (a QW) Mul(b QW) QW {
	return QW((int64(a) * int64(b)) >> Shift)
}

// Div returns a/b, a being scaled up before the integer division to
// preserve fractional precision.
func (a QW) Div(b QW) QW {
	if b == 0 {
		return 0
	}
	return QW((int64(a) << Shift) / int64(b))
}

// MulTrunc multiplies by b and truncates the result to a whole number of
// world units (an int64, not a QW) — used where the caller needs an
// integer count derived from a fixed-point product (e.g. segment counts).
func (a QW) MulTrunc(b QW) int64 {
	return int64(a.Mul(b)) >> Shift
}

// MulInt multiplies by a plain integer scalar without re-scaling.
func (a QW) MulInt(n int64) QW {
	return QW(int64(a) * n)
}

// ToFloat64 converts to a float64 world-unit value. Only for logging,
// metrics, and test assertions — never for simulation state.
func (a QW) ToFloat64() float64 {
	return float64(a) / Scale
}

// Trunc truncates to a whole number of world units, rounding toward zero.
func (a QW) Trunc() int64 {
	return int64(a) / Scale
}

// Neg negates the value.
func (a QW) Neg() QW { return -a }

// Abs returns the absolute value.
func (a QW) Abs() QW {
	if a < 0 {
		return -a
	}
	return a
}

// QWPos is a pair of fixed-point world coordinates.
type QWPos struct {
	X, Y QW
}

// Add returns the componentwise sum.
func (p QWPos) Add(o QWPos) QWPos {
	return QWPos{X: p.X.Add(o.X), Y: p.Y.Add(o.Y)}
}

// Sub returns the componentwise difference.
func (p QWPos) Sub(o QWPos) QWPos {
	return QWPos{X: p.X.Sub(o.X), Y: p.Y.Sub(o.Y)}
}

// DistSq returns the squared distance between two positions, in QW.
func (p QWPos) DistSq(o QWPos) QW {
	d := p.Sub(o)
	return d.X.Mul(d.X).Add(d.Y.Mul(d.Y))
}

// QWAABB is an axis-aligned bounding box defined by its two corners.
type QWAABB struct {
	Min, Max QWPos
}

// Union returns the smallest AABB containing both a and b.
func (a QWAABB) Union(b QWAABB) QWAABB {
	out := a
	if b.Min.X < out.Min.X {
		out.Min.X = b.Min.X
	}
	if b.Min.Y < out.Min.Y {
		out.Min.Y = b.Min.Y
	}
	if b.Max.X > out.Max.X {
		out.Max.X = b.Max.X
	}
	if b.Max.Y > out.Max.Y {
		out.Max.Y = b.Max.Y
	}
	return out
}

// FromPoint returns the degenerate AABB containing a single point.
func FromPoint(p QWPos) QWAABB {
	return QWAABB{Min: p, Max: p}
}

// Extend grows the AABB to include p, returning the new box.
func (a QWAABB) Extend(p QWPos) QWAABB {
	return a.Union(FromPoint(p))
}

// Overlaps reports whether the two boxes intersect (inclusive of edges).
func (a QWAABB) Overlaps(b QWAABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y
}
