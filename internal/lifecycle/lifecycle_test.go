package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopCancelsContextAndSetsFlag(t *testing.T) {
	c := New()
	defer c.Close()

	require.False(t, c.ShouldExit())
	c.Stop()
	require.True(t, c.ShouldExit())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New()
	defer c.Close()

	require.NotPanics(t, func() {
		c.Stop()
		c.Stop()
		c.Stop()
	})
	require.True(t, c.ShouldExit())
}

func TestContextErrNilBeforeStop(t *testing.T) {
	c := New()
	defer c.Close()
	require.NoError(t, c.Context().Err())
}
