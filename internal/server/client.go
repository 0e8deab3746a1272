package server

import (
	"wyrm/internal/netaddr"
	"wyrm/internal/protocol"
)

// clientRecord is the per-client state keyed by net address, matching
// spec.md's "Server-client record": pending outbound messages, the
// timeout counter, the CBF window, and reorder protection for COMMANDS.
type clientRecord struct {
	Addr     netaddr.Addr
	SnakeID  uint16
	Username string

	Out protocol.OutboundQueue

	TimeoutCounter int

	CBF cbfWindow

	LastCommandMsgFrame uint16
	HasCommandMsgFrame  bool

	ProtocolVersion uint8
}
