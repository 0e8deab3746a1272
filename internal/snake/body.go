package snake

import (
	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
)

// Data is a snake's body: a ring of bézier handles (newest/head-most
// first), the points sampled from them, and a per-segment AABB ring — all
// three kept in the same newest-first order so that trimming a trailing
// run of stale segments from one ring trims the same segments from the
// others — plus the overall bounding box. Handles[0], if present, is the
// most recently emitted handle behind the live head.
type Data struct {
	Handles []Handle
	Points  []fixed.QWPos
	AABBs   []fixed.QWAABB
	Overall fixed.QWAABB

	// pendingAnchor is the position the head is measured against while no
	// handle has been emitted yet (i.e. the spawn point). It is set lazily
	// on the first Step call so that a freshly spawned snake must travel a
	// full segment length before its first handle appears, the same as it
	// must between every later pair of handles.
	pendingAnchor    fixed.QWPos
	hasPendingAnchor bool
}

// Bounds returns the overall AABB, recomputing it from the segment ring
// (used after trimming, when Overall may be stale).
func (d *Data) Bounds() fixed.QWAABB {
	if len(d.AABBs) == 0 {
		return fixed.QWAABB{}
	}
	b := d.AABBs[0]
	for _, a := range d.AABBs[1:] {
		b = b.Union(a)
	}
	return b
}

func (d *Data) recomputeOverall() {
	d.Overall = d.Bounds()
}

// Step advances the snake one simulation tick: it rotates the head toward
// cmd's target heading (at most param.TurnSpeed/simTickRate per tick),
// advances the head position by the commanded speed, and emits a new
// bézier handle whenever the head has moved more than param.SegmentLength
// past the last one. It returns the number of trailing points that have
// become stale (beyond param.LengthTarget) and may be trimmed by the
// caller via RemoveStaleSegments.
//
// Trig is read from QA's fixed lookup table, never computed with
// math.Sin/Cos, so identical inputs always produce identical outputs
// regardless of platform.
func Step(data *Data, head *Handle, param Param, cmd cmdqueue.Command, simTickRate int) int {
	if simTickRate <= 0 {
		simTickRate = 1
	}
	if !data.hasPendingAnchor && len(data.Handles) == 0 {
		data.pendingAnchor = head.Pos
		data.hasPendingAnchor = true
	}

	target := fixed.QA(cmd.Angle)
	maxStep := uint8(int(param.TurnSpeed) / simTickRate)
	head.Angle = head.Angle.RotateToward(target, maxStep)

	speedFrac := fixed.MakeQWFraction(float64(cmd.Speed) / 255.0)
	speed := param.ForwardSpeed.Mul(speedFrac)
	if cmd.Action == cmdqueue.ActionBoost {
		speed = speed.Mul(param.BoostMultiplier)
	}
	advanceMag := speed.Div(fixed.MakeQW(int64(simTickRate)))
	delta := head.Angle.Unit(advanceMag)
	head.Pos = head.Pos.Add(delta)

	anchor := data.pendingAnchor
	if len(data.Handles) > 0 {
		anchor = data.Handles[0].Pos
	}

	segLenSq := param.SegmentLength.Mul(param.SegmentLength)
	distSq := head.Pos.DistSq(anchor)
	if distSq > segLenSq {
		newHandle := Handle{Pos: head.Pos, Angle: head.Angle}
		data.Handles = append([]Handle{newHandle}, data.Handles...)
		data.Points = append([]fixed.QWPos{head.Pos}, data.Points...)
		segAABB := fixed.FromPoint(anchor).Extend(head.Pos)
		data.AABBs = append([]fixed.QWAABB{segAABB}, data.AABBs...)
		data.Overall = data.Overall.Union(segAABB)
		data.pendingAnchor = head.Pos
	}

	maxHandles := int(param.LengthTarget.Div(param.SegmentLength).Trunc())
	if maxHandles < 1 {
		maxHandles = 1
	}
	if len(data.Handles) > maxHandles {
		return len(data.Handles) - maxHandles
	}
	return 0
}

// RemoveStaleSegments trims stale trailing handles/points/AABBs (the tail
// end of the ring) and recomputes the overall bounding box.
func RemoveStaleSegments(data *Data, stale int) {
	if stale <= 0 {
		return
	}
	n := len(data.Handles)
	if stale > n {
		stale = n
	}
	data.Handles = data.Handles[:n-stale]
	if stale <= len(data.Points) {
		data.Points = data.Points[:len(data.Points)-stale]
	}
	if stale <= len(data.AABBs) {
		data.AABBs = data.AABBs[:len(data.AABBs)-stale]
	}
	data.recomputeOverall()
}

// RemoveStaleSegmentsWithRollbackConstraint is RemoveStaleSegments, except
// it never trims past the segment containing headAck — the client uses
// this so that a server reconciliation pivot always has enough body left
// to roll back to. It returns the number of segments actually trimmed.
func RemoveStaleSegmentsWithRollbackConstraint(data *Data, headAck Handle, stale int) int {
	if stale <= 0 {
		return 0
	}
	ackIdx := indexOfNearestHandle(data.Handles, headAck)
	n := len(data.Handles)
	// Handles are ordered newest-first; anything at index <= ackIdx is the
	// ack pivot or newer than it and must survive trimming.
	maxTrimmable := n - (ackIdx + 1)
	if maxTrimmable < 0 {
		maxTrimmable = 0
	}
	if stale > maxTrimmable {
		stale = maxTrimmable
	}
	RemoveStaleSegments(data, stale)
	return stale
}

// indexOfNearestHandle returns the index of the handle in handles (ordered
// newest-first) nearest to target's position, or len(handles) if handles
// is empty (meaning nothing is protected from trimming).
func indexOfNearestHandle(handles []Handle, target Handle) int {
	if len(handles) == 0 {
		return 0
	}
	best := 0
	bestDist := handles[0].Pos.DistSq(target.Pos)
	for i := 1; i < len(handles); i++ {
		d := handles[i].Pos.DistSq(target.Pos)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
