package server

import "wyrm/internal/fixed"

// cbfWindowSize is the sliding sample count spec.md's cbf_window holds.
const cbfWindowSize = 20

// cbfWindow is a fixed-capacity ring of recent command-buffer-fullness
// samples, used to detect chronic under/over-buffering by a client.
type cbfWindow struct {
	samples [cbfWindowSize]int
	filled  int
	next    int
}

// fillWith seeds every slot with v, the state a freshly joined client
// starts in (one net-tick's worth of sim frames already buffered).
func (w *cbfWindow) fillWith(v int) {
	for i := range w.samples {
		w.samples[i] = v
	}
	w.filled = cbfWindowSize
	w.next = 0
}

// push records a new sample, overwriting the oldest once full.
func (w *cbfWindow) push(v int) {
	w.samples[w.next] = v
	w.next = (w.next + 1) % cbfWindowSize
	if w.filled < cbfWindowSize {
		w.filled++
	}
}

// min returns the minimum of the filled samples; the window is always
// seeded via fillWith before use, so it is never empty in practice.
func (w *cbfWindow) min() int {
	if w.filled == 0 {
		return 0
	}
	m := w.samples[0]
	for i := 1; i < w.filled; i++ {
		if w.samples[i] < m {
			m = w.samples[i]
		}
	}
	return m
}

// clientCommandsQueued is last_frame_in_queue - current_server_frame as a
// signed wrap, the raw CBF sample pushed into the window each net-tick.
func clientCommandsQueued(lastFrameInQueue, currentServerFrame uint16) int {
	return int(fixed.U16SubWrap(lastFrameInQueue, currentServerFrame))
}

// cbfFeedback decides whether this net-tick's CBF sample warrants a
// FEEDBACK message, and what diff to send. granularity is
// sim_tick_rate/net_tick_rate. Returns ok=false when no warp is needed.
func cbfFeedback(queued int, w *cbfWindow, granularity int) (diff int8, ok bool) {
	if queued < 0 {
		d := queued
		if d < -10 {
			d = -10
		}
		return int8(d), true
	}
	if over := w.min() - 2*granularity; over > 0 {
		d := over
		if d > 10 {
			d = 10
		}
		return int8(d), true
	}
	return 0, false
}
