package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wyrm/internal/cmdqueue"
	"wyrm/internal/fixed"
	"wyrm/internal/protocol"
	"wyrm/internal/snake"
)

func newConnectedSession(t *testing.T) (*Session, *net.UDPConn) {
	t.Helper()
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverConn.Close() })

	cfg := Config{Host: "127.0.0.1", Port: serverConn.LocalAddr().(*net.UDPAddr).Port, Username: "test"}
	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Connect())
	require.Equal(t, Joining, s.state)
	s.tick() // flushes the queued JOIN_REQUEST onto the wire

	buf := make([]byte, protocol.MaxUDPPacketSize)
	n, clientAddr, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	messages, err := protocol.UnpackDatagram(buf[:n])
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, protocol.JoinRequest, messages[0].Type)

	accept := protocol.JoinAcceptPayload{
		SimTickRate: 60,
		NetTickRate: 20,
		ClientFrame: 0,
		ServerFrame: 32,
		SnakeID:     1,
		Spawn:       fixed.QWPos{},
	}
	payload, err := accept.Encode()
	require.NoError(t, err)
	data, _ := protocol.PackDatagram([]protocol.Message{protocol.NewMessage(protocol.JoinAccept, payload)})
	_, err = serverConn.WriteToUDP(data, clientAddr)
	require.NoError(t, err)

	s.tick()
	require.Equal(t, Connected, s.state)

	return s, serverConn
}

func TestConnectQueuesJoinRequest(t *testing.T) {
	newConnectedSession(t)
}

func TestJoinAcceptAdoptsRatesAndSpawnsSnake(t *testing.T) {
	s, _ := newConnectedSession(t)
	require.Equal(t, 60, s.simTickRate)
	require.Equal(t, 20, s.netTickRate)
	require.Equal(t, 3, s.granularity)
	require.Equal(t, uint16(1), s.SnakeID())
	require.NotNil(t, s.Snake())
}

func TestJoinDenyReturnsToDisconnected(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer serverConn.Close()

	cfg := Config{Host: "127.0.0.1", Port: serverConn.LocalAddr().(*net.UDPAddr).Port, Username: "test"}
	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Connect())
	s.tick() // flushes the queued JOIN_REQUEST onto the wire

	buf := make([]byte, protocol.MaxUDPPacketSize)
	n, clientAddr, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	_, err = protocol.UnpackDatagram(buf[:n])
	require.NoError(t, err)

	deny := protocol.JoinDenyPayload{Error: "server full"}
	payload, _ := deny.Encode()
	data, _ := protocol.PackDatagram([]protocol.Message{protocol.NewMessage(protocol.JoinDenyServerFull, payload)})
	_, err = serverConn.WriteToUDP(data, clientAddr)
	require.NoError(t, err)

	s.tick()
	require.Equal(t, Disconnected, s.state)
}

func TestReconciliationAcceptsMatchingPrediction(t *testing.T) {
	s, _ := newConnectedSession(t)

	frame := s.ackFrame + 1
	predictedHead := s.snk.Head
	s.predicted[frame] = predictedHead

	head := protocol.SnakeHeadPayload{Frame: frame, SnakeID: s.snakeID, Head: predictedHead}
	payload, err := head.Encode()
	require.NoError(t, err)

	before := s.reconciliations
	s.handleSnakeHead(payload)
	require.Equal(t, before+1, s.reconciliations)
	require.Equal(t, frame, s.ackFrame)
}

func TestReconciliationRollsBackOnMismatch(t *testing.T) {
	s, _ := newConnectedSession(t)

	frame := s.ackFrame + 1
	s.predicted[frame] = s.snk.Head

	mismatched := s.snk.Head
	mismatched.Pos = mismatched.Pos.Add(fixed.QWPos{X: fixed.MakeQW(100)})

	head := protocol.SnakeHeadPayload{Frame: frame, SnakeID: s.snakeID, Head: mismatched}
	payload, err := head.Encode()
	require.NoError(t, err)

	before := s.mispredicts
	s.handleSnakeHead(payload)
	require.Equal(t, before+1, s.mispredicts)
	require.Equal(t, mismatched, s.snk.Head)
	require.Equal(t, frame, s.ackFrame)
}

func TestStaleSnakeHeadIsDropped(t *testing.T) {
	s, _ := newConnectedSession(t)
	s.ackFrame = 100

	head := protocol.SnakeHeadPayload{Frame: 50, SnakeID: s.snakeID, Head: snake.Handle{}}
	payload, err := head.Encode()
	require.NoError(t, err)

	before := s.reconciliations
	s.handleSnakeHead(payload)
	require.Equal(t, before, s.reconciliations, "a frame at or behind ackFrame must never reconcile")
}

func TestSendCommandsBatchesSinceLastAck(t *testing.T) {
	s, serverConn := newConnectedSession(t)

	s.snk.CmdQueue.Put(cmdqueue.Command{Angle: 1, Speed: 200}, s.ackFrame+1)
	s.frame = s.ackFrame + 1
	s.sendCommands()
	s.out.Tick()
	datagrams := s.out.Flush()
	require.Len(t, datagrams, 1)
	_, err := s.conn.Write(datagrams[0])
	require.NoError(t, err)

	buf := make([]byte, protocol.MaxUDPPacketSize)
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	messages, err := protocol.UnpackDatagram(buf[:n])
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, protocol.Commands, messages[0].Type)

	cmds, err := protocol.DecodeCommands(messages[0].Payload)
	require.NoError(t, err)
	require.Equal(t, s.frame, cmds.LastFrame)
	require.True(t, s.hasSentFrame)
}

func TestFeedbackWarpsFrameCounter(t *testing.T) {
	s, _ := newConnectedSession(t)
	start := s.frame

	fb := protocol.FeedbackPayload{Diff: -4, Frame: start}
	payload, err := fb.Encode()
	require.NoError(t, err)
	s.handleFeedback(payload)

	require.Equal(t, start-4, s.frame)
}
