// Package server implements the authoritative server session: the
// per-client table keyed by net address, the CBF control loop, and the
// nested sim-tick/net-tick loop that steps the world and fans out
// updates. Generalized from the teacher's Server type (UDP listener,
// client table, ticker-driven game loop) onto this protocol's frame-based
// session model; the teacher's worker pool and room management are
// dropped, since spec.md's concurrency model is explicitly single-
// threaded cooperative and rooms are out of scope.
package server

import (
	"fmt"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"wyrm/internal/config"
	"wyrm/internal/fixed"
	"wyrm/internal/metrics"
	"wyrm/internal/netaddr"
	"wyrm/internal/protocol"
	"wyrm/internal/tick"
	"wyrm/internal/world"
)

const (
	protocolVersion   = protocol.Version
	initialBuffer     = 3 // sim frames past the join frame that a fresh snake stays held through
	clientTimeoutNet  = 100
	maliciousTimeout  = 5 * time.Second
	maxUDPRecvBuffer  = protocol.MaxUDPPacketSize
)

// Server is one authoritative game session bound to a single UDP socket.
type Server struct {
	cfg    config.ServerConfig
	log    *zap.Logger
	conn   *net.UDPConn
	world  *world.World

	clients map[netaddr.Addr]*clientRecord
	banned  map[string]bool
	bad     *cache.Cache // malicious addresses -> struct{}, TTL-expired

	frame       uint16
	granularity int // sim_tick_rate / net_tick_rate
}

// New binds a UDP socket on cfg.Port and returns a ready Server. The
// world starts with a single seed food cluster, mirroring a fresh game
// session the way the teacher's NewServer seeds its maps.
func New(cfg config.ServerConfig, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("server: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	granularity := cfg.SimTickRate / cfg.NetTickRate
	if granularity < 1 {
		granularity = 1
	}

	banned := make(map[string]bool, len(cfg.BannedIPs))
	for _, ip := range cfg.BannedIPs {
		banned[ip] = true
	}

	w := world.New()
	w.SpawnCluster(fixed.QWPos{}, world.MaxClusterFood/4, 1)

	s := &Server{
		cfg:         cfg,
		log:         log,
		conn:        conn,
		world:       w,
		clients:     make(map[netaddr.Addr]*clientRecord),
		banned:      banned,
		bad:         cache.New(maliciousTimeout, time.Minute),
		granularity: granularity,
	}
	return s, nil
}

// Close releases the bound socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// LocalAddr returns the socket's bound address, useful when cfg.Port was
// 0 and the kernel chose an ephemeral port.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Run drives the net-tick loop until ctx-like done is closed (caller
// passes a lifecycle.Controller's Done channel). Each net-tick: the
// socket is drained non-blocking, granularity sim-ticks run, and
// per-client outbound queues are flushed.
func (s *Server) Run(done <-chan struct{}) {
	driver := tick.New(s.cfg.NetTickRate)
	buf := make([]byte, maxUDPRecvBuffer)

	for {
		select {
		case <-done:
			return
		default:
		}

		if lag := driver.Wait(); lag > 0 {
			metrics.ServerTickLagTotal.Add(float64(lag))
			s.log.Warn("net_tick_lag", zap.Int("periods", lag))
		}

		s.netTick(buf)

		select {
		case <-done:
			return
		default:
		}
	}
}

func (s *Server) netTick(buf []byte) {
	s.ageClients()
	s.drainSocket(buf)

	for i := 0; i < s.granularity; i++ {
		s.world.Step(s.frame, s.cfg.SimTickRate)
		s.frame++
	}

	s.broadcastState()
	s.flushAll()
	metrics.ServerClientsActive.Set(float64(len(s.clients)))
}

// ageClients increments every client's timeout counter and drops clients
// that have exceeded clientTimeoutNet net-ticks without a single
// received packet resetting it back to zero.
func (s *Server) ageClients() {
	for addr, c := range s.clients {
		c.TimeoutCounter++
		if c.TimeoutCounter > clientTimeoutNet {
			s.log.Info("client_timeout", zap.String("addr", addr.String()), zap.Uint16("snake_id", c.SnakeID))
			s.world.RemoveSnake(c.SnakeID)
			delete(s.clients, addr)
			metrics.ServerTimeouts.Inc()
		}
	}
}

// drainSocket reads every datagram currently queued on the socket
// (non-blocking), dispatching each to handleDatagram.
func (s *Server) drainSocket(buf []byte) {
	_ = s.conn.SetReadDeadline(time.Now())
	for {
		n, udpAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return // timeout / would-block: no more data this tick
		}
		metrics.ServerBytesRecv.Add(float64(n))
		s.handleDatagram(netaddr.From(udpAddr), append([]byte(nil), buf[:n]...))
	}
}

func (s *Server) flushAll() {
	for addr, c := range s.clients {
		c.Out.Tick()
		for _, datagram := range c.Out.Flush() {
			n, err := s.conn.WriteToUDP(datagram, addr.UDPAddr())
			if err != nil {
				s.log.Warn("send_failed", zap.String("addr", addr.String()), zap.Error(err))
				continue
			}
			metrics.ServerBytesSent.Add(float64(n))
			if messages, err := protocol.UnpackDatagram(datagram); err == nil {
				metrics.ServerMessagesSent.Add(float64(len(messages)))
			}
		}
	}
}

func (s *Server) markMalicious(addr netaddr.Addr) {
	s.bad.Set(addr.String(), struct{}{}, cache.DefaultExpiration)
	metrics.ServerMalicious.Inc()
}

func (s *Server) isBanned(addr netaddr.Addr) bool {
	udp := addr.UDPAddr()
	return s.banned[udp.IP.String()]
}

func (s *Server) isMalicious(addr netaddr.Addr) bool {
	_, found := s.bad.Get(addr.String())
	return found
}
