// Package client implements the connecting player's session: the
// Disconnected/Joining/Connected state machine, client-side prediction of
// the local snake, and server reconciliation (rollback + replay) driven
// by incoming SNAKE_HEAD updates. Generalized from the teacher's Client
// type (UDP dial, predictMovement/reconcileState, gameLoop/tick) onto
// this protocol's frame-based, bézier-bodied snake instead of the
// teacher's wall-clock Vector3 player.
package client

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"wyrm/internal/metrics"
	"wyrm/internal/protocol"
	"wyrm/internal/snake"
	"wyrm/internal/tick"
)

// State is the client session's connection state.
type State int

const (
	Disconnected State = iota
	Joining
	Connected
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	// clientTickRate drives resend bookkeeping and join retries while not
	// yet connected; the spec doesn't fix this, so it's a local default
	// separate from the adopted sim_tick_rate/net_tick_rate.
	clientTickRate = 20

	// timeoutNetTicks is the number of consecutive net-ticks with no
	// received datagram before the client gives up and disconnects.
	timeoutNetTicks = 100

	// rttMaliciousMultiple bounds how stale a JOIN_ACCEPT may look before
	// it is treated as corrupt/malicious rather than merely slow.
	rttMaliciousMultiple = 5
)

// candidate is one not-yet-chosen UDP socket dialed during Joining: the
// spec resolves both IPv4 and IPv6 addresses and races them.
type candidate struct {
	conn *net.UDPConn
	addr *net.UDPAddr
	out  protocol.OutboundQueue
}

// Config configures a new session.
type Config struct {
	Host     string
	Port     int
	Username string
}

// Session is one player's connection to a server.
type Session struct {
	cfg Config
	log *zap.Logger

	state State

	candidates []*candidate
	conn       *net.UDPConn // chosen socket, set once Connected
	out        protocol.OutboundQueue

	simTickRate int
	netTickRate int
	granularity int

	snakeID uint16
	snk     *snake.Snake

	frame         uint16
	lastSentFrame uint16
	hasSentFrame  bool

	// predicted records the locally-predicted head as of each stepped
	// frame, pruned up to the last acknowledged frame; it's the pivot the
	// reconciler compares the server's authoritative head against.
	predicted map[uint16]snake.Handle

	// ackFrame is the frame of the last server-acknowledged head (the
	// rollback pivot); commands at or behind it are never replayed.
	ackFrame       uint16
	timeoutCounter int

	reconciliations int
	mispredicts     int
}

// New resolves cfg.Host (both IPv4 and IPv6 candidates where available)
// and opens one non-blocking UDP socket per candidate, matching the
// teacher's single-dial Connect generalized to the spec's multi-candidate
// race.
func New(cfg Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ips, err := net.LookupIP(cfg.Host)
	if err != nil {
		// Host may already be a literal address LookupIP can't resolve
		// further (e.g. "127.0.0.1" resolves fine, but be defensive).
		ips = nil
	}
	if len(ips) == 0 {
		ip := net.ParseIP(cfg.Host)
		if ip == nil {
			return nil, fmt.Errorf("client: resolve host %q: %w", cfg.Host, err)
		}
		ips = []net.IP{ip}
	}

	s := &Session{
		cfg:       cfg,
		log:       log,
		state:     Disconnected,
		predicted: make(map[uint16]snake.Handle),
	}

	for _, ip := range ips {
		addr := &net.UDPAddr{IP: ip, Port: cfg.Port}
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			s.closeCandidates()
			return nil, fmt.Errorf("client: dial %s: %w", addr, err)
		}
		s.candidates = append(s.candidates, &candidate{conn: conn, addr: addr})
	}
	if len(s.candidates) == 0 {
		return nil, fmt.Errorf("client: no usable address for %q", cfg.Host)
	}
	return s, nil
}

func (s *Session) closeCandidates() {
	for _, c := range s.candidates {
		_ = c.conn.Close()
	}
	s.candidates = nil
}

// Close releases whatever sockets are still open.
func (s *Session) Close() error {
	s.closeCandidates()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// SnakeID returns the id assigned by the server, valid once Connected.
func (s *Session) SnakeID() uint16 {
	return s.snakeID
}

// Snake returns the locally predicted snake, valid once Connected.
func (s *Session) Snake() *snake.Snake {
	return s.snk
}

// Connect queues a reliable JOIN_REQUEST on every candidate socket and
// transitions to Joining.
func (s *Session) Connect() error {
	if s.state != Disconnected {
		return fmt.Errorf("client: connect called in state %s", s.state)
	}
	req := protocol.JoinRequestPayload{ProtocolVersion: protocol.Version, Username: s.cfg.Username, Frame: s.frame}
	payload, err := req.Encode()
	if err != nil {
		return fmt.Errorf("client: encode join request: %w", err)
	}
	for _, c := range s.candidates {
		c.out.Queue(protocol.NewMessage(protocol.JoinRequest, payload))
	}
	s.state = Joining
	s.log.Info("connecting", zap.String("host", s.cfg.Host), zap.Int("port", s.cfg.Port), zap.String("name", s.cfg.Username))
	return nil
}

// Run drives the session's tick loop until done is closed.
func (s *Session) Run(done <-chan struct{}) {
	rate := clientTickRate
	driver := tick.New(rate)

	for {
		select {
		case <-done:
			return
		default:
		}

		if desired := s.desiredTickRate(); desired != rate {
			rate = desired
			driver = tick.New(rate)
		}

		if lag := driver.Wait(); lag > 0 {
			s.log.Warn("client_tick_lag", zap.Int("periods", lag))
		}

		s.tick()
		if s.state == Disconnected {
			return
		}
	}
}

func (s *Session) desiredTickRate() int {
	if s.state == Connected && s.netTickRate > 0 {
		return s.netTickRate
	}
	return clientTickRate
}

func (s *Session) tick() {
	switch s.state {
	case Joining:
		s.tickJoining()
	case Connected:
		s.tickConnected()
	}
}

func (s *Session) tickJoining() {
	for _, c := range s.candidates {
		c.out.Tick()
		for _, datagram := range c.out.Flush() {
			_, _ = c.conn.Write(datagram)
		}
		s.drainCandidate(c)
		if s.state != Joining {
			return
		}
	}
}

func (s *Session) drainCandidate(c *candidate) {
	buf := make([]byte, protocol.MaxUDPPacketSize)
	_ = c.conn.SetReadDeadline(time.Now())
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return
		}
		messages, err := protocol.UnpackDatagram(buf[:n])
		if err != nil {
			continue // malformed datagram from an unaccepted candidate: ignore
		}
		for _, m := range messages {
			s.handleJoiningMessage(c, m)
			if s.state != Joining {
				return
			}
		}
	}
}

func (s *Session) tickConnected() {
	s.timeoutCounter++
	if s.timeoutCounter > timeoutNetTicks {
		s.log.Warn("client_timeout", zap.Uint16("snake_id", s.snakeID))
		s.disconnect()
		return
	}

	for i := 0; i < s.granularity; i++ {
		s.stepLocal()
		s.frame++
	}

	s.sendCommands()
	s.out.Tick()
	for _, datagram := range s.out.Flush() {
		n, err := s.conn.Write(datagram)
		if err != nil {
			s.log.Warn("send_failed", zap.Error(err))
			continue
		}
		metrics.ClientBytesSent.Add(float64(n))
	}

	s.drainConnected()
}

// stepLocal predicts the local snake forward one frame using whatever
// command is queued (or the last one, repeated) and records the
// resulting head as this frame's reconciliation pivot.
func (s *Session) stepLocal() {
	cmd := s.snk.CmdQueue.FindOrPredict(s.frame)
	s.snk.Param = snake.DeriveParam(s.snk.Upgrades, s.snk.FoodEaten+1)
	stale := snake.Step(&s.snk.Data, &s.snk.Head, s.snk.Param, cmd, s.simTickRate)
	snake.RemoveStaleSegmentsWithRollbackConstraint(&s.snk.Data, s.snk.HeadAck, stale)
	s.predicted[s.frame] = s.snk.Head
}

func (s *Session) drainConnected() {
	buf := make([]byte, protocol.MaxUDPPacketSize)
	_ = s.conn.SetReadDeadline(time.Now())
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return
		}
		s.timeoutCounter = 0
		messages, err := protocol.UnpackDatagram(buf[:n])
		if err != nil {
			continue // a corrupt datagram from the server is surprising but non-fatal here
		}
		for _, m := range messages {
			s.dispatch(m)
		}
	}
}

func (s *Session) disconnect() {
	s.state = Disconnected
	if s.conn != nil {
		leave := protocol.NewMessage(protocol.Leave, nil)
		s.out.Queue(leave)
		s.out.Tick()
		for _, datagram := range s.out.Flush() {
			_, _ = s.conn.Write(datagram)
		}
		_ = s.conn.Close()
	}
}
