package protocol

import "sort"

// recordHeaderSize is the [type u8][payload_len u8] prefix of a framed
// record, not counting the payload itself.
const recordHeaderSize = 2

// PackDatagram packs as many messages as fit into a single datagram no
// larger than MaxUDPPacketSize, unreliable messages first and reliable
// messages after (per spec: "packing order: unreliable first, then
// reliable; messages that don't fit are skipped, retried next tick").
// It returns the encoded bytes and the indices (into messages) of the
// messages that were actually packed, so the caller can reset their
// resend counters / drop unreliable ones sent.
func PackDatagram(messages []Message) ([]byte, []int) {
	order := make([]int, len(messages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := messages[order[a]].Reliable(), messages[order[b]].Reliable()
		if ra == rb {
			return false
		}
		return !ra // unreliable (ra == false) sorts first
	})

	out := make([]byte, 0, MaxUDPPacketSize)
	var packed []int
	for _, idx := range order {
		m := messages[idx]
		if len(m.Payload) > MaxPayloadSize {
			continue // caller bug or corrupt payload; never emit an invalid record
		}
		need := recordHeaderSize + len(m.Payload)
		if len(out)+need > MaxUDPPacketSize {
			continue
		}
		out = append(out, byte(m.Type), byte(len(m.Payload)))
		out = append(out, m.Payload...)
		packed = append(packed, idx)
	}
	return out, packed
}

// UnpackDatagram splits a received datagram into its framed records. If any
// record's declared length runs past the end of the datagram, the whole
// remaining datagram is discarded and ErrInvalidMessage is returned
// alongside whatever valid records were decoded before the corruption —
// callers (the server) should mark the sender malicious on this error.
func UnpackDatagram(data []byte) ([]Message, error) {
	var out []Message
	for len(data) > 0 {
		if len(data) < recordHeaderSize {
			return out, ErrInvalidMessage
		}
		t := MessageType(data[0])
		n := int(data[1])
		if !t.IsValid() {
			return out, ErrInvalidMessage
		}
		data = data[recordHeaderSize:]
		if n > len(data) {
			return out, ErrInvalidMessage
		}
		payload := make([]byte, n)
		copy(payload, data[:n])
		data = data[n:]
		out = append(out, NewMessage(t, payload))
	}
	return out, nil
}
