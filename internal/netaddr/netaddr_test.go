package netaddr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromV4RoundTrips(t *testing.T) {
	in := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9001}
	a := From(in)
	out := a.UDPAddr()
	require.True(t, in.IP.Equal(out.IP))
	require.Equal(t, in.Port, out.Port)
}

func TestFromV6RoundTrips(t *testing.T) {
	in := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 443}
	a := From(in)
	out := a.UDPAddr()
	require.True(t, in.IP.Equal(out.IP))
	require.Equal(t, in.Port, out.Port)
}

func TestEqualSameAddress(t *testing.T) {
	a := From(&net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234})
	b := From(&net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234})
	require.True(t, a.Equal(b))
	require.Equal(t, a, b, "usable directly as a comparable map key")
}

func TestEqualDifferentPort(t *testing.T) {
	a := From(&net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234})
	b := From(&net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 4321})
	require.False(t, a.Equal(b))
}

func TestEqualDifferentIPFamily(t *testing.T) {
	v4 := From(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})
	v6 := From(&net.UDPAddr{IP: net.ParseIP("::1"), Port: 1})
	require.False(t, v4.Equal(v6))
}

func TestHashDeterministic(t *testing.T) {
	a := From(&net.UDPAddr{IP: net.ParseIP("8.8.8.8"), Port: 53})
	b := From(&net.UDPAddr{IP: net.ParseIP("8.8.8.8"), Port: 53})
	require.Equal(t, a.Hash(), b.Hash())
}

func TestUsableAsMapKey(t *testing.T) {
	m := make(map[Addr]int)
	a := From(&net.UDPAddr{IP: net.ParseIP("1.2.3.4"), Port: 5})
	m[a] = 7
	b := From(&net.UDPAddr{IP: net.ParseIP("1.2.3.4"), Port: 5})
	v, ok := m[b]
	require.True(t, ok)
	require.Equal(t, 7, v)
}
