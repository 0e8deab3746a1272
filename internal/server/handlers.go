package server

import (
	"wyrm/internal/fixed"
	"wyrm/internal/metrics"
	"wyrm/internal/netaddr"
	"wyrm/internal/protocol"

	"go.uber.org/zap"
)

// handleDatagram implements spec.md §4.7's per-datagram dispatch: banned
// and malicious senders are dropped outright, known clients have their
// timeout counter reset, and each framed record is unpacked and routed by
// type. An inconsistent record length marks the whole sender malicious
// and stops processing the rest of the datagram.
func (s *Server) handleDatagram(addr netaddr.Addr, data []byte) {
	if s.isBanned(addr) {
		return
	}
	if s.isMalicious(addr) {
		s.markMalicious(addr) // refresh/extend the ban
		return
	}

	if c, ok := s.clients[addr]; ok {
		c.TimeoutCounter = 0
	}

	messages, err := protocol.UnpackDatagram(data)
	if err != nil {
		s.markMalicious(addr)
	}

	for _, m := range messages {
		metrics.ServerMessagesRecv.Inc()
		s.dispatch(addr, m)
	}
}

func (s *Server) dispatch(addr netaddr.Addr, m protocol.Message) {
	switch m.Type {
	case protocol.JoinRequest:
		s.handleJoinRequest(addr, m.Payload)
	case protocol.Commands:
		s.handleCommands(addr, m.Payload)
	case protocol.Leave:
		s.handleLeave(addr)
	case protocol.SnakeBezierAck:
		s.handleAck(addr, m)
	case protocol.SnakeMetadataAck:
		s.handleAck(addr, m)
	case protocol.FoodCreateAck:
		s.handleAck(addr, m)
	case protocol.FoodDestroyAck:
		s.handleAck(addr, m)
	default:
		s.markMalicious(addr)
	}
}

func (s *Server) handleJoinRequest(addr netaddr.Addr, payload []byte) {
	req, err := protocol.DecodeJoinRequest(payload)
	if err != nil {
		s.markMalicious(addr)
		return
	}

	if req.ProtocolVersion != protocolVersion {
		s.sendDeny(addr, protocol.JoinDenyBadProtocol)
		return
	}

	c, exists := s.clients[addr]
	if !exists {
		if len(s.clients) >= s.cfg.MaxPlayers {
			s.sendDeny(addr, protocol.JoinDenyServerFull)
			return
		}
		if len(req.Username) > s.cfg.MaxUsernameLen {
			s.sendDeny(addr, protocol.JoinDenyBadUsername)
			return
		}

		snk := s.world.AddSnake(fixed.QWPos{})
		snk.HasHold = true
		snk.HoldUntilFrame = s.frame + initialBuffer
		c = &clientRecord{
			Addr:            addr,
			SnakeID:         snk.ID,
			Username:        req.Username,
			ProtocolVersion: req.ProtocolVersion,
		}
		c.CBF.fillWith(s.granularity)
		s.clients[addr] = c
		s.log.Info("client_joined", zap.String("addr", addr.String()), zap.Uint16("snake_id", snk.ID), zap.String("name", req.Username))
	}

	accept := protocol.JoinAcceptPayload{
		SimTickRate: uint8(s.cfg.SimTickRate),
		NetTickRate: uint8(s.cfg.NetTickRate),
		ClientFrame: req.Frame,
		ServerFrame: s.frame,
		SnakeID:     c.SnakeID,
		Spawn:       fixed.QWPos{},
	}
	payloadBytes, err := accept.Encode()
	if err != nil {
		return // drop this accept, mid-loop OOM-style failure; retried by client resend
	}
	c.Out.Queue(protocol.NewMessage(protocol.JoinAccept, payloadBytes))
}

func (s *Server) sendDeny(addr netaddr.Addr, t protocol.MessageType) {
	deny := protocol.JoinDenyPayload{Error: t.String()}
	payload, err := deny.Encode()
	if err != nil {
		return
	}
	var out protocol.OutboundQueue
	out.Queue(protocol.NewMessage(t, payload))
	for _, datagram := range out.Flush() {
		_, _ = s.conn.WriteToUDP(datagram, addr.UDPAddr())
	}
}

func (s *Server) handleCommands(addr netaddr.Addr, payload []byte) {
	c, ok := s.clients[addr]
	if !ok {
		return
	}
	snk, ok := s.world.Snake(c.SnakeID)
	if !ok {
		return
	}

	msg, err := protocol.DecodeCommands(payload)
	if err != nil {
		s.markMalicious(addr)
		return
	}

	if c.HasCommandMsgFrame && !fixed.U16GtWrap(msg.LastFrame, c.LastCommandMsgFrame) {
		return // reorder/duplicate protection: silently drop the whole batch
	}
	c.HasCommandMsgFrame = true
	c.LastCommandMsgFrame = msg.LastFrame

	// Cmds[0] is newest (frame LastFrame); Cmds[n] applies to LastFrame-n.
	// The queue only accepts strictly increasing frames, so insert oldest
	// first by walking the slice backwards.
	for i := len(msg.Cmds) - 1; i >= 0; i-- {
		frame := msg.LastFrame - uint16(i)
		snk.CmdQueue.Put(msg.Cmds[i], frame)
	}

	if snk.HasHold && !snk.ShouldHold(s.frame) {
		snk.ReleaseHold()
	}

	queued := clientCommandsQueued(msg.LastFrame, s.frame)
	c.CBF.push(queued)
	if diff, ok := cbfFeedback(queued, &c.CBF, s.granularity); ok {
		fb := protocol.FeedbackPayload{Diff: diff, Frame: s.frame}
		if encoded, err := fb.Encode(); err == nil {
			c.Out.Queue(protocol.NewMessage(protocol.Feedback, encoded))
			metrics.ServerCBFDiff.Observe(float64(diff))
		}
	}
}

func (s *Server) handleLeave(addr netaddr.Addr) {
	c, ok := s.clients[addr]
	if !ok {
		return
	}
	s.world.RemoveSnake(c.SnakeID)
	delete(s.clients, addr)
}

func (s *Server) handleAck(addr netaddr.Addr, m protocol.Message) {
	c, ok := s.clients[addr]
	if !ok {
		return
	}
	ackType := ackedReliableType(m.Type)
	c.Out.Ack(ackType, func(payload []byte) bool {
		return matchesAckPayload(ackType, payload, m.Payload)
	})
}

// ackedReliableType maps an *_ACK message type to the reliable type it
// acknowledges.
func ackedReliableType(ack protocol.MessageType) protocol.MessageType {
	switch ack {
	case protocol.SnakeBezierAck:
		return protocol.SnakeBezier
	case protocol.SnakeMetadataAck:
		return protocol.SnakeMetadata
	case protocol.FoodCreateAck:
		return protocol.FoodCreate
	case protocol.FoodDestroyAck:
		return protocol.FoodDestroy
	default:
		return ack
	}
}

// matchesAckPayload compares the identity fields a given reliable
// message's payload carries against the _ACK payload just received, so
// Ack removes only the message the peer actually confirmed.
func matchesAckPayload(reliable protocol.MessageType, pending, ack []byte) bool {
	switch reliable {
	case protocol.SnakeBezier:
		p, err1 := protocol.DecodeSnakeBezier(pending)
		a, err2 := protocol.DecodeSnakeBezierAck(ack)
		return err1 == nil && err2 == nil && p.SnakeID == a.SnakeID && p.Frame == a.Frame
	case protocol.SnakeMetadata:
		p, err1 := protocol.DecodeSnakeMetadata(pending)
		a, err2 := protocol.DecodeSnakeMetadataAck(ack)
		return err1 == nil && err2 == nil && p.SnakeID == a.SnakeID
	case protocol.FoodCreate:
		p, err1 := protocol.DecodeFoodCreate(pending)
		a, err2 := protocol.DecodeFoodCreateAck(ack)
		return err1 == nil && err2 == nil && p.ClusterIndex == a.ClusterIndex
	case protocol.FoodDestroy:
		p, err1 := protocol.DecodeFoodDestroy(pending)
		a, err2 := protocol.DecodeFoodDestroyAck(ack)
		return err1 == nil && err2 == nil && p.ClusterIndex == a.ClusterIndex
	default:
		return false
	}
}

// broadcastState queues SNAKE_HEAD and, when the snake has any handles,
// SNAKE_BEZIER for its newest handle (Handles[0]) on every net-tick,
// whether or not a new handle was emitted since the last one, for every
// client's own snake and every other snake within the configured
// proximity radius.
func (s *Server) broadcastState() {
	for _, c := range s.clients {
		snk, ok := s.world.Snake(c.SnakeID)
		if !ok {
			continue
		}
		s.queueSnakeUpdate(c, snk.ID)
		for _, otherID := range s.world.ProximitySnakeIDs(snk.Head.Pos, s.cfg.ProximityRadius, snk.ID) {
			s.queueSnakeUpdate(c, otherID)
		}
	}
}

func (s *Server) queueSnakeUpdate(c *clientRecord, snakeID uint16) {
	snk, ok := s.world.Snake(snakeID)
	if !ok {
		return
	}
	head := protocol.SnakeHeadPayload{Frame: s.frame, SnakeID: snakeID, Head: snk.Head}
	if encoded, err := head.Encode(); err == nil {
		c.Out.Queue(protocol.NewMessage(protocol.SnakeHead, encoded))
	}
	if len(snk.Data.Handles) == 0 {
		return
	}
	latest := snk.Data.Handles[0]
	bez := protocol.SnakeBezierPayload{SnakeID: snakeID, Frame: s.frame, Handle: latest}
	if encoded, err := bez.Encode(); err == nil {
		c.Out.Queue(protocol.NewMessage(protocol.SnakeBezier, encoded))
	}
}
