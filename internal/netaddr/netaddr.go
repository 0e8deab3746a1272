// Package netaddr implements the opaque net-address blob used to key
// server-side per-client state: a length-prefixed byte blob holding an
// IPv4 or IPv6 socket address, hashed with Jenkins one-at-a-time and
// compared by length+memcmp, so it can serve as a map key without relying
// on net.UDPAddr's own (allocating, string-based) comparison semantics.
package netaddr

import (
	"bytes"
	"net"

	"wyrm/internal/jenkins"
)

// MaxBytes bounds the address payload: 16 bytes of IPv6 plus a 2-byte
// port covers every case this protocol cares about, with room to spare.
const MaxBytes = 32

// Addr is a fixed-size, comparable, hashable representation of a UDP
// peer address.
type Addr struct {
	length uint8
	bytes  [MaxBytes]byte
}

// From builds an Addr from a *net.UDPAddr, packing the IP bytes (4 or 16,
// using the 4-in-6 form normalized to the shortest representation) followed
// by the big-endian port.
func From(a *net.UDPAddr) Addr {
	var out Addr
	ip := a.IP
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	} else {
		ip = ip.To16()
	}
	n := copy(out.bytes[:], ip)
	out.bytes[n] = byte(a.Port >> 8)
	out.bytes[n+1] = byte(a.Port)
	out.length = uint8(n + 2)
	return out
}

// Bytes returns the used portion of the blob.
func (a Addr) Bytes() []byte {
	return a.bytes[:a.length]
}

// Equal reports whether two addresses hold the same length and bytes.
func (a Addr) Equal(b Addr) bool {
	return a.length == b.length && bytes.Equal(a.Bytes(), b.Bytes())
}

// Hash returns the Jenkins one-at-a-time hash of the address's used bytes,
// suitable for use as a map key alongside Equal, or directly as a Go map
// key since Addr is a comparable fixed-size struct.
func (a Addr) Hash() uint32 {
	return jenkins.OneAtATime(a.Bytes())
}

// UDPAddr reconstructs a *net.UDPAddr from the blob, for use when actually
// sending a packet.
func (a Addr) UDPAddr() *net.UDPAddr {
	n := int(a.length) - 2
	if n < 0 {
		return &net.UDPAddr{}
	}
	ip := make(net.IP, n)
	copy(ip, a.bytes[:n])
	port := int(a.bytes[n])<<8 | int(a.bytes[n+1])
	return &net.UDPAddr{IP: ip, Port: port}
}

// String renders the address for logging, matching net.UDPAddr's form.
func (a Addr) String() string {
	return a.UDPAddr().String()
}
