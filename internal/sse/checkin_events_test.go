package sse

import (
	"context"
	"testing"
	"time"

	"ms-badging/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_BroadcastsToAllAndLocation(t *testing.T) {
	e := NewCheckInEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := e.Subscribe(ctx)
	hall := e.SubscribeToLocation(ctx, "hall_b")
	door := e.SubscribeToLocation(ctx, "main_entrance")

	e.NotifyCheckIn(models.CheckInNotice{BadgeID: "AIS2025-1", Location: "hall_b", CheckInType: models.CheckIn})

	select {
	case n := <-all:
		assert.Equal(t, "AIS2025-1", n.BadgeID)
	case <-time.After(time.Second):
		t.Fatal("venue subscriber got nothing")
	}
	select {
	case n := <-hall:
		assert.Equal(t, "hall_b", n.Location)
	case <-time.After(time.Second):
		t.Fatal("location subscriber got nothing")
	}
	select {
	case <-door:
		t.Fatal("other location must not receive the notice")
	default:
	}
}

func TestEmitter_SlowClientDoesNotBlock(t *testing.T) {
	e := NewCheckInEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.NotifyCheckIn(models.CheckInNotice{BadgeID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyCheckIn blocked on a full client")
	}
}

func TestEmitter_UnsubscribesOnContextDone(t *testing.T) {
	e := NewCheckInEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx)
	e.SubscribeToLocation(ctx, "hall_b")
	require.Equal(t, 1, e.ClientCount())
	require.Equal(t, 1, e.LocationClientCount("hall_b"))

	cancel()

	assert.Eventually(t, func() bool {
		return e.ClientCount() == 0 && e.LocationClientCount("hall_b") == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
}
