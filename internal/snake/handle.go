// Package snake implements the deterministic bézier-handle body
// representation and the fixed-timestep step function that advances it.
package snake

import "wyrm/internal/fixed"

// Handle is one control point of a snake's bézier body.
type Handle struct {
	Pos          fixed.QWPos
	Angle        fixed.QA
	LenForwards  uint8
	LenBackwards uint8
}

// Param holds the mutable simulation parameters derived from a snake's
// current upgrades and food-eaten count: how long it should be, how fast
// it turns and moves, and its boost multiplier.
type Param struct {
	LengthTarget    fixed.QW
	SegmentLength   fixed.QW
	TurnSpeed       uint16 // QA units per second
	ForwardSpeed    fixed.QW
	BoostMultiplier fixed.QW
}

// baseLengthTarget, baseForwardSpeed etc. are the unmodified starting
// parameters; upgrades and food each push them incrementally, capped so a
// snake cannot become arbitrarily fast or long.
const (
	baseLengthTarget    = 12
	baseSegmentLength   = 1
	baseTurnSpeed       = 96 // QA units/sec
	baseForwardSpeed    = 6
	baseBoostMultiplier = 175 // fixed-point fraction, see DeriveParam

	lengthPerFood   = 1
	maxLengthTarget = 400
	turnSpeedPerUpgrade = 4
	maxTurnSpeed        = 220
	speedPerUpgrade     = 1
	maxForwardSpeed     = 14
)

// DeriveParam recomputes a snake's simulation parameters from its upgrade
// count and total food eaten, per spec.md's "param is mutable, derived
// from (upgrades, food_eaten)" rule. Snake.StepFrame and the client's local
// prediction call it once per step, before stepping, passing food_eaten+1.
func DeriveParam(upgrades, foodEaten int) Param {
	length := baseLengthTarget + foodEaten*lengthPerFood
	if length > maxLengthTarget {
		length = maxLengthTarget
	}
	turn := baseTurnSpeed + upgrades*turnSpeedPerUpgrade
	if turn > maxTurnSpeed {
		turn = maxTurnSpeed
	}
	speed := baseForwardSpeed + upgrades*speedPerUpgrade
	if speed > maxForwardSpeed {
		speed = maxForwardSpeed
	}
	return Param{
		LengthTarget:    fixed.MakeQW(int64(length)),
		SegmentLength:   fixed.MakeQW(baseSegmentLength),
		TurnSpeed:       uint16(turn),
		ForwardSpeed:    fixed.MakeQW(int64(speed)),
		BoostMultiplier: fixed.MakeQWFraction(float64(baseBoostMultiplier) / 100.0),
	}
}
