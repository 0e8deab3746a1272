package jenkins

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneAtATimeDeterministic(t *testing.T) {
	a := OneAtATime([]byte("hello world"))
	b := OneAtATime([]byte("hello world"))
	require.Equal(t, a, b)
}

func TestOneAtATimeDiffersOnDifferentInput(t *testing.T) {
	a := OneAtATime([]byte{1, 2, 3, 4})
	b := OneAtATime([]byte{1, 2, 3, 5})
	require.NotEqual(t, a, b)
}

func TestOneAtATimeEmpty(t *testing.T) {
	require.Equal(t, uint32(0), OneAtATime(nil))
}

func TestCombineDeterministic(t *testing.T) {
	require.Equal(t, Combine(1, 2), Combine(1, 2))
	require.NotEqual(t, Combine(1, 2), Combine(2, 1))
}
