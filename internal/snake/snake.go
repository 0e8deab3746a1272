package snake

import (
	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
)

// Snake is one player's full simulation state: its live head, the
// server-acknowledged head used as the client's rollback pivot, its body,
// its derived parameters, its command queue, and an optional hold frame
// during which it must not step.
type Snake struct {
	ID uint16

	Head    Handle
	HeadAck Handle

	Data Data

	Upgrades  int
	FoodEaten int
	Param     Param

	CmdQueue *cmdqueue.Queue

	// HoldUntilFrame, when HasHold is true, means the snake must not step
	// while the current frame is <= HoldUntilFrame (wrapping compare). The
	// server uses this to keep a newly-joined snake from stepping ahead of
	// the client's first command frame.
	HoldUntilFrame uint16
	HasHold        bool
}

// New creates a snake at spawn with default parameters and an empty
// command queue.
func New(id uint16, spawn fixed.QWPos) *Snake {
	h := Handle{Pos: spawn, Angle: 0}
	return &Snake{
		ID:       id,
		Head:     h,
		HeadAck:  h,
		Data:     Data{},
		Param:    DeriveParam(0, 0),
		CmdQueue: cmdqueue.New(),
	}
}

// ShouldHold reports whether the snake must not step on the given frame.
func (s *Snake) ShouldHold(frame uint16) bool {
	return s.HasHold && fixed.U16LeWrap(frame, s.HoldUntilFrame)
}

// ReleaseHold clears the hold once the caller has verified the frame has
// caught up.
func (s *Snake) ReleaseHold() {
	s.HasHold = false
}

// StepFrame takes (or predicts) the command for frame, recomputes Param
// from the snake's upgrades and FoodEaten+1, and advances the body one tick.
// It returns the number of trailing segments that became stale (the
// caller decides whether to trim them immediately or under a rollback
// constraint). If the snake is on hold for this frame, StepFrame is a
// no-op and returns 0.
func (s *Snake) StepFrame(frame uint16, simTickRate int) int {
	if s.ShouldHold(frame) {
		return 0
	}
	cmd := s.CmdQueue.TakeOrPredict(frame)
	// Only ActionBoost changes the step; Shoot and Split are not acted on
	// here or by the world update. FoodEaten is bumped by the world's food pass.
	s.Param = DeriveParam(s.Upgrades, s.FoodEaten+1)
	return Step(&s.Data, &s.Head, s.Param, cmd, simTickRate)
}
