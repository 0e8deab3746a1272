package protocol

// OutboundQueue holds pending messages for one peer: unreliable messages
// are removed once sent; reliable messages stay queued, resent every
// ResendRate net-ticks, until Ack or Remove takes them out.
type OutboundQueue struct {
	pending []Message
}

// Queue appends a new outbound message.
func (q *OutboundQueue) Queue(m Message) {
	q.pending = append(q.pending, m)
}

// Tick decrements every reliable message's resend counter by one net-tick.
// Call this once per net-tick before Flush.
func (q *OutboundQueue) Tick() {
	for i := range q.pending {
		m := &q.pending[i]
		if !m.Reliable() {
			continue
		}
		if m.ResendRateCounter > 0 {
			m.ResendRateCounter--
		}
	}
}

// Flush packs everything due to send this tick (all unreliable messages,
// plus reliable messages whose counter has reached zero) into as many
// datagrams as needed, removing unreliable messages once packed and
// resetting reliable counters to ResendRate. It returns the encoded
// datagrams in send order.
func (q *OutboundQueue) Flush() [][]byte {
	var due []Message
	var dueIdx []int
	for i, m := range q.pending {
		if !m.Reliable() {
			due = append(due, m)
			dueIdx = append(dueIdx, i)
			continue
		}
		if m.ResendRateCounter == 0 {
			due = append(due, m)
			dueIdx = append(dueIdx, i)
		}
	}
	if len(due) == 0 {
		return nil
	}

	var datagrams [][]byte
	remaining := due
	remainingIdx := dueIdx
	sent := make(map[int]bool)
	for len(remaining) > 0 {
		data, packed := PackDatagram(remaining)
		if len(packed) == 0 {
			break // nothing fit even alone; stop here, unsent messages stay queued
		}
		datagrams = append(datagrams, data)
		for _, p := range packed {
			sent[remainingIdx[p]] = true
		}
		var nextRemaining []Message
		var nextIdx []int
		packedSet := make(map[int]bool, len(packed))
		for _, p := range packed {
			packedSet[p] = true
		}
		for i, m := range remaining {
			if packedSet[i] {
				continue
			}
			nextRemaining = append(nextRemaining, m)
			nextIdx = append(nextIdx, remainingIdx[i])
		}
		remaining = nextRemaining
		remainingIdx = nextIdx
	}

	var kept []Message
	for i, m := range q.pending {
		if !sent[i] {
			kept = append(kept, m)
			continue
		}
		if !m.Reliable() {
			continue // unreliable: sent once, then dropped
		}
		m.ResendRateCounter = m.ResendRate
		kept = append(kept, m)
	}
	q.pending = kept
	return datagrams
}

// Ack removes the first queued reliable message of type t whose payload
// matches key (caller-defined identity, e.g. a snake_id+frame pair encoded
// into the bytes compared). Returns true if a message was removed.
func (q *OutboundQueue) Ack(t MessageType, matches func(payload []byte) bool) bool {
	for i, m := range q.pending {
		if m.Type != t {
			continue
		}
		if matches(m.Payload) {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Remove drops every pending message of type t (used e.g. on LEAVE, or
// when tearing down a session).
func (q *OutboundQueue) Remove(t MessageType) {
	var kept []Message
	for _, m := range q.pending {
		if m.Type != t {
			kept = append(kept, m)
		}
	}
	q.pending = kept
}

// Len returns the number of messages currently pending.
func (q *OutboundQueue) Len() int {
	return len(q.pending)
}
