//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan int) int {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast message")
		return 0
	}
}

func TestBroadcast_fanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", "numbers", source)
	defer b.Close()

	first := b.Subscribe()
	second := b.Subscribe()

	go func() { source <- 42 }()

	assert.Equal(t, 42, receive(t, first))
	assert.Equal(t, 42, receive(t, second))
}

func TestBroadcast_cancelSubscription(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", "numbers", source)
	defer b.Close()

	sub := b.Subscribe()
	keep := b.Subscribe()
	b.CancelSubscription(sub)

	// the cancelled channel gets closed
	select {
	case _, ok := <-sub:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled subscription was not closed")
	}

	go func() { source <- 7 }()
	assert.Equal(t, 7, receive(t, keep))
}

func TestBroadcast_closeClosesListeners(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", "numbers", source)
	sub := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not closed on shutdown")
	}
}
