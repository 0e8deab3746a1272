package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wyrm/internal/cmdqueue"
	"wyrm/internal/config"
	"wyrm/internal/protocol"
)

func newTestServer(t *testing.T) (*Server, *net.UDPConn) {
	t.Helper()
	cfg := config.Default()
	cfg.Port = 0
	cfg.SimTickRate = 60
	cfg.NetTickRate = 20

	srv, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	clientConn, err := net.DialUDP("udp", nil, srv.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })

	return srv, clientConn
}

func sendDatagram(t *testing.T, conn *net.UDPConn, messages ...protocol.Message) {
	t.Helper()
	data, packed := protocol.PackDatagram(messages)
	require.Len(t, packed, len(messages), "all messages must fit in one test datagram")
	_, err := conn.Write(data)
	require.NoError(t, err)
}

func recvMessage(t *testing.T, conn *net.UDPConn, want protocol.MessageType) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, protocol.MaxUDPPacketSize)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	messages, err := protocol.UnpackDatagram(buf[:n])
	require.NoError(t, err)
	for _, m := range messages {
		if m.Type == want {
			return m
		}
	}
	t.Fatalf("message of type %s not found in datagram", want)
	return protocol.Message{}
}

func TestJoinRequestAcceptsAndSpawnsSnake(t *testing.T) {
	srv, clientConn := newTestServer(t)

	req := protocol.JoinRequestPayload{ProtocolVersion: protocolVersion, Username: "test", Frame: 0}
	payload, err := req.Encode()
	require.NoError(t, err)
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.JoinRequest, payload))

	buf := make([]byte, protocol.MaxUDPPacketSize)
	srv.netTick(buf)

	require.Len(t, srv.clients, 1)

	m := recvMessage(t, clientConn, protocol.JoinAccept)
	accept, err := protocol.DecodeJoinAccept(m.Payload)
	require.NoError(t, err)
	require.Equal(t, uint16(0), accept.ClientFrame)
	require.Equal(t, uint8(60), accept.SimTickRate)
	require.Equal(t, uint8(20), accept.NetTickRate)
}

func TestJoinRequestDeniedWhenServerFull(t *testing.T) {
	srv, clientConn := newTestServer(t)
	srv.cfg.MaxPlayers = 0

	req := protocol.JoinRequestPayload{ProtocolVersion: protocolVersion, Username: "test", Frame: 0}
	payload, err := req.Encode()
	require.NoError(t, err)
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.JoinRequest, payload))

	buf := make([]byte, protocol.MaxUDPPacketSize)
	srv.netTick(buf)

	require.Len(t, srv.clients, 0)
	m := recvMessage(t, clientConn, protocol.JoinDenyServerFull)
	_, err = protocol.DecodeJoinDeny(m.Payload)
	require.NoError(t, err)
}

func TestJoinRequestDeniedWhenUsernameTooLong(t *testing.T) {
	srv, clientConn := newTestServer(t)
	srv.cfg.MaxUsernameLen = 2

	req := protocol.JoinRequestPayload{ProtocolVersion: protocolVersion, Username: "toolong", Frame: 0}
	payload, err := req.Encode()
	require.NoError(t, err)
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.JoinRequest, payload))

	buf := make([]byte, protocol.MaxUDPPacketSize)
	srv.netTick(buf)

	require.Len(t, srv.clients, 0)
	recvMessage(t, clientConn, protocol.JoinDenyBadUsername)
}

func TestCommandsReorderProtectionDropsStaleBatch(t *testing.T) {
	srv, clientConn := newTestServer(t)
	buf := make([]byte, protocol.MaxUDPPacketSize)

	req := protocol.JoinRequestPayload{ProtocolVersion: protocolVersion, Username: "test", Frame: 0}
	payload, _ := req.Encode()
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.JoinRequest, payload))
	srv.netTick(buf)
	recvMessage(t, clientConn, protocol.JoinAccept)

	var c *clientRecord
	for _, rec := range srv.clients {
		c = rec
	}
	require.NotNil(t, c)
	snk, _ := srv.world.Snake(c.SnakeID)

	first := protocol.CommandsPayload{LastFrame: 50, Cmds: []cmdqueue.Command{{Angle: 1, Speed: 1}}}
	p1, _ := first.Encode()
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.Commands, p1))
	srv.netTick(buf)
	require.True(t, c.HasCommandMsgFrame)
	require.Equal(t, uint16(50), c.LastCommandMsgFrame)

	stale := protocol.CommandsPayload{LastFrame: 49, Cmds: []cmdqueue.Command{{Angle: 9, Speed: 9}}}
	p2, _ := stale.Encode()
	sendDatagram(t, clientConn, protocol.NewMessage(protocol.Commands, p2))
	srv.netTick(buf)

	require.Equal(t, uint16(50), c.LastCommandMsgFrame, "stale batch must not update last_command_msg_frame")
	cmd, ok := snk.CmdQueue.Peek(49)
	require.False(t, ok, "stale batch's command must never be admitted to the queue")
	_ = cmd
}
