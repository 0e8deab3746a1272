package client

import (
	"go.uber.org/zap"

	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
	"wyrm/internal/metrics"
	"wyrm/internal/protocol"
	"wyrm/internal/snake"
)

// handleJoiningMessage processes a datagram received on one of the
// candidate sockets while still in Joining: JOIN_ACCEPT picks that
// candidate as the session's single socket and completes the handshake;
// JOIN_DENY_* returns to Disconnected.
func (s *Session) handleJoiningMessage(c *candidate, m protocol.Message) {
	switch m.Type {
	case protocol.JoinAccept:
		s.handleJoinAccept(c, m.Payload)
	case protocol.JoinDenyBadProtocol, protocol.JoinDenyBadUsername, protocol.JoinDenyServerFull:
		s.handleJoinDeny(m)
	}
}

func (s *Session) handleJoinAccept(c *candidate, payload []byte) {
	accept, err := protocol.DecodeJoinAccept(payload)
	if err != nil {
		return
	}

	rtt := int(fixed.U16SubWrap(s.frame, accept.ClientFrame))
	if rtt < 0 || rtt > int(accept.NetTickRate)*rttMaliciousMultiple {
		s.log.Warn("join_accept_rejected", zap.Int("rtt", rtt))
		s.disconnectCandidates()
		return
	}

	s.frame = accept.ServerFrame + uint16(rtt/2)
	s.simTickRate = int(accept.SimTickRate)
	s.netTickRate = int(accept.NetTickRate)
	s.granularity = s.simTickRate / s.netTickRate
	if s.granularity < 1 {
		s.granularity = 1
	}
	s.snakeID = accept.SnakeID
	s.snk = snake.New(accept.SnakeID, accept.Spawn)
	s.ackFrame = s.frame
	s.predicted = map[uint16]snake.Handle{s.frame: s.snk.Head}

	for _, other := range s.candidates {
		if other == c {
			continue
		}
		_ = other.conn.Close()
	}
	s.candidates = nil
	s.conn = c.conn
	s.out = c.out
	s.state = Connected
	s.timeoutCounter = 0
	if s.netTickRate > 0 {
		metrics.ClientRTTMs.Set(float64(rtt) * 1000.0 / float64(s.netTickRate))
	}

	s.log.Info("connected",
		zap.Uint16("snake_id", s.snakeID),
		zap.Uint16("frame", s.frame),
		zap.Int("rtt_frames", rtt))
}

func (s *Session) handleJoinDeny(m protocol.Message) {
	deny, err := protocol.DecodeJoinDeny(m.Payload)
	if err != nil {
		return
	}
	s.log.Warn("join_denied", zap.String("reason", deny.Error))
	s.disconnectCandidates()
}

func (s *Session) disconnectCandidates() {
	s.closeCandidates()
	s.state = Disconnected
}

// dispatch routes a message received over the established connection.
func (s *Session) dispatch(m protocol.Message) {
	switch m.Type {
	case protocol.SnakeHead:
		s.handleSnakeHead(m.Payload)
	case protocol.SnakeBezier:
		s.handleSnakeBezier(m.Payload)
	case protocol.Feedback:
		s.handleFeedback(m.Payload)
	case protocol.JoinDenyBadProtocol, protocol.JoinDenyBadUsername, protocol.JoinDenyServerFull:
		// A post-connect deny is unexpected (likely a stale resend);
		// ignore rather than tearing down an already-accepted session.
	}
}

// handleSnakeHead implements spec.md §4.4's reconciliation: stale updates
// (at or behind the rollback pivot) are dropped; a match against the
// locally recorded prediction for that frame just advances the pivot and
// trims acknowledged commands; a mismatch rolls the head back to the
// server's value and replays every command still queued past that frame.
func (s *Session) handleSnakeHead(payload []byte) {
	head, err := protocol.DecodeSnakeHead(payload)
	if err != nil || head.SnakeID != s.snakeID {
		return
	}
	if !fixed.U16GtWrap(head.Frame, s.ackFrame) {
		return
	}

	if predicted, ok := s.predicted[head.Frame]; ok && predicted == head.Head {
		s.acceptReconciliation(head.Frame, head.Head)
		return
	}

	s.rollbackAndReplay(head.Frame, head.Head)
}

func (s *Session) acceptReconciliation(frame uint16, head snake.Handle) {
	s.snk.HeadAck = head
	s.ackFrame = frame
	s.snk.CmdQueue.DropThrough(frame)
	s.prunePredicted(frame)
	s.reconciliations++
	metrics.ClientReconciliations.Inc()
}

func (s *Session) rollbackAndReplay(frame uint16, serverHead snake.Handle) {
	s.mispredicts++
	metrics.ClientMispredicts.Inc()

	s.snk.Head = serverHead
	s.snk.HeadAck = serverHead
	s.ackFrame = frame

	replay := s.snk.CmdQueue.Commands()
	firstFrame := s.snk.CmdQueue.FirstFrame()
	for i, cmd := range replay {
		cmdFrame := firstFrame + uint16(i)
		if !fixed.U16GtWrap(cmdFrame, frame) {
			continue
		}
		s.snk.Param = snake.DeriveParam(s.snk.Upgrades, s.snk.FoodEaten+1)
		stale := snake.Step(&s.snk.Data, &s.snk.Head, s.snk.Param, cmd, s.simTickRate)
		snake.RemoveStaleSegmentsWithRollbackConstraint(&s.snk.Data, s.snk.HeadAck, stale)
		s.predicted[cmdFrame] = s.snk.Head
	}

	s.snk.CmdQueue.DropThrough(frame)
	s.prunePredicted(frame)
}

// prunePredicted drops recorded predictions at or behind frame: they can
// never be the rollback pivot again (frame numbers only move forward).
func (s *Session) prunePredicted(frame uint16) {
	for f := range s.predicted {
		if !fixed.U16GtWrap(f, frame) {
			delete(s.predicted, f)
		}
	}
}

func (s *Session) handleSnakeBezier(payload []byte) {
	bez, err := protocol.DecodeSnakeBezier(payload)
	if err != nil {
		return
	}
	if bez.SnakeID != s.snakeID {
		return // other snakes' bodies aren't tracked locally in this build
	}
	ack := protocol.SnakeBezierAckPayload{SnakeID: bez.SnakeID, Frame: bez.Frame}
	if encoded, err := ack.Encode(); err == nil {
		s.out.Queue(protocol.NewMessage(protocol.SnakeBezierAck, encoded))
	}
}

// handleFeedback implements the CBF warp: the server's diff (already
// clamped to ±10) is applied directly to the local frame counter so the
// client's command production lands back inside the server's target
// buffering window.
func (s *Session) handleFeedback(payload []byte) {
	fb, err := protocol.DecodeFeedback(payload)
	if err != nil {
		return
	}
	s.frame = uint16(int32(s.frame) + int32(fb.Diff))
}

// sendCommands batches into a single COMMANDS message every command from
// the frame after the later of the acked frame and the last sent frame up
// to the current frame (at most 255, keeping the newest).
func (s *Session) sendCommands() {
	start := s.ackFrame + 1
	if s.hasSentFrame && fixed.U16GtWrap(s.lastSentFrame+1, start) {
		start = s.lastSentFrame + 1
	}
	if !fixed.U16GeWrap(s.frame, start) {
		return // nothing new since the last batch
	}

	count := int(fixed.U16SubWrap(s.frame, start)) + 1
	if count > 255 {
		count = 255
		start = s.frame - uint16(count-1)
	}

	cmds := make([]cmdqueue.Command, count)
	for i := 0; i < count; i++ {
		frame := s.frame - uint16(i)
		cmds[i] = s.snk.CmdQueue.FindOrPredict(frame)
	}

	msg := protocol.CommandsPayload{LastFrame: s.frame, Cmds: cmds}
	encoded, err := msg.Encode()
	if err != nil {
		return
	}
	s.out.Queue(protocol.NewMessage(protocol.Commands, encoded))
	s.lastSentFrame = s.frame
	s.hasSentFrame = true
}

// Steer queues cmd as the local player's input for the current frame,
// making it available to both local prediction and the next COMMANDS
// batch.
func (s *Session) Steer(cmd cmdqueue.Command) {
	if s.snk == nil {
		return
	}
	s.snk.CmdQueue.Put(cmd, s.frame)
}
