package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubDeliversToCompetitionRoom(t *testing.T) {
	h := NewHub(slog.Default())
	go h.Run()
	defer h.Close()

	subscriber := NewClient(h, nil, 7)
	h.Register(subscriber)
	outsider := NewClient(h, nil, 8)
	h.Register(outsider)

	event := New(KindRoundAdvanced, Payload{CompetitionID: 7, Round: 2})

	// Registration is handled by the Run goroutine, so deliver until the
	// room has the subscriber.
	var raw []byte
	require.Eventually(t, func() bool {
		require.NoError(t, h.Deliver(context.Background(), event))
		select {
		case raw = <-subscriber.send:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	var got Event
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, KindRoundAdvanced, got.Kind)
	require.Equal(t, 7, got.Payload.CompetitionID)
	require.Equal(t, 2, got.Payload.Round)

	select {
	case msg := <-outsider.send:
		t.Fatalf("event leaked into another competition's room: %s", msg)
	default:
	}
}

func TestHubCloseStopsRunAndDisconnects(t *testing.T) {
	h := NewHub(slog.Default())
	stopped := make(chan struct{})
	go func() {
		h.Run()
		close(stopped)
	}()

	client := NewClient(h, nil, 3)
	h.Register(client)

	h.Close()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after Close")
	}

	// Subscribers see their send channel closed.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.closed
	}, time.Second, 10*time.Millisecond)

	// Registration after shutdown must not block.
	done := make(chan struct{})
	go func() {
		h.Register(NewClient(h, nil, 4))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register blocked after Close")
	}
}
