package cmdqueue

import "wyrm/internal/fixed"

// Queue is a ring buffer of commands tagged by a single base frame number:
// it holds contiguous commands for frames [firstFrame, firstFrame+count).
// Inserts are accepted only if the new command's frame is exactly
// firstFrame+count (append-only by frame) — out-of-order or duplicate
// frames are silently rejected.
type Queue struct {
	firstFrame uint16
	commands   []Command

	lastCommandRead Command
	hasLastRead     bool
}

// New returns an empty command queue.
func New() *Queue {
	return &Queue{}
}

// Count returns the number of commands currently buffered.
func (q *Queue) Count() int {
	return len(q.commands)
}

// FirstFrame returns the frame number of the oldest buffered command. Its
// value is meaningless when Count() == 0 beyond bookkeeping continuity.
func (q *Queue) FirstFrame() uint16 {
	return q.firstFrame
}

// LastFrame returns the frame number of the newest buffered command, and
// false if the queue is empty.
func (q *Queue) LastFrame() (uint16, bool) {
	if len(q.commands) == 0 {
		return 0, false
	}
	return q.firstFrame + uint16(len(q.commands)-1), true
}

// LastCommandRead returns the most recently taken (or predicted) command,
// and whether any command has ever been read from this queue.
func (q *Queue) LastCommandRead() (Command, bool) {
	return q.lastCommandRead, q.hasLastRead
}

// Put inserts cmd for frame. It is a no-op (returning false) unless the
// queue is empty (in which case frame becomes the new base) or frame is
// exactly firstFrame+Count() (strict append-only-by-frame).
func (q *Queue) Put(cmd Command, frame uint16) bool {
	if len(q.commands) == 0 {
		q.firstFrame = frame
		q.commands = append(q.commands[:0], cmd)
		return true
	}
	expected := q.firstFrame + uint16(len(q.commands))
	if frame != expected {
		return false
	}
	q.commands = append(q.commands, cmd)
	return true
}

// Peek returns the command stored for frame, if any is currently buffered
// for it (does not consult the prediction fallback).
func (q *Queue) Peek(frame uint16) (Command, bool) {
	if len(q.commands) == 0 {
		return Command{}, false
	}
	if !fixed.U16GeWrap(frame, q.firstFrame) {
		return Command{}, false
	}
	idx := int(fixed.U16SubWrap(frame, q.firstFrame))
	if idx < 0 || idx >= len(q.commands) {
		return Command{}, false
	}
	return q.commands[idx], true
}

// TakeOrPredict is the destructive read used by the simulation step: it
// drops all buffered commands up to and including frame, remembering the
// last one taken, and returns it. If frame is older than everything
// buffered, or the queue has already run dry, it returns the last command
// read (repeat-last-input prediction) without mutating the queue further.
func (q *Queue) TakeOrPredict(frame uint16) Command {
	if fixed.U16LtWrap(frame, q.firstFrame) {
		return q.lastCommandRead
	}
	for len(q.commands) > 0 && fixed.U16LeWrap(q.firstFrame, frame) {
		popped := q.commands[0]
		q.commands = q.commands[1:]
		q.lastCommandRead = popped
		q.hasLastRead = true
		q.firstFrame++
	}
	return q.lastCommandRead
}

// FindOrPredict is the non-destructive variant: it returns the command
// stored for frame if present, otherwise the newest buffered command, and
// falls back to the last command read if the queue is empty.
func (q *Queue) FindOrPredict(frame uint16) Command {
	if cmd, ok := q.Peek(frame); ok {
		return cmd
	}
	if len(q.commands) > 0 {
		return q.commands[len(q.commands)-1]
	}
	return q.lastCommandRead
}

// DropThrough removes all buffered commands with frame <= upTo (wrapping),
// without treating any of them as "read" (used by the client after a
// server reconciliation accepts a frame, to discard now-redundant history).
func (q *Queue) DropThrough(upTo uint16) {
	for len(q.commands) > 0 && fixed.U16LeWrap(q.firstFrame, upTo) {
		q.commands = q.commands[1:]
		q.firstFrame++
	}
}

// Commands returns a copy of the currently buffered commands in frame
// order, starting at FirstFrame().
func (q *Queue) Commands() []Command {
	out := make([]Command, len(q.commands))
	copy(out, q.commands)
	return out
}
