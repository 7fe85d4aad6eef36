package broadcast

import (
	"context"
	"testing"

	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

func drain(t *testing.T, sub *Subscription) []models.Event {
	t.Helper()
	var events []models.Event
	for {
		select {
		case event := <-sub.C:
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestGlobalEventReachesAllSubscribers(t *testing.T) {
	hub := NewHub(4)
	everything := hub.Subscribe()
	wardA := hub.Subscribe("ward-a")
	defer everything.Close()
	defer wardA.Close()

	if err := hub.Broadcast(context.Background(), models.Event{Type: models.EventAlertCreated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := drain(t, everything); len(got) != 1 {
		t.Fatalf("unfiltered subscriber expected 1 event, got %d", len(got))
	}
	if got := drain(t, wardA); len(got) != 1 {
		t.Fatalf("location-scoped subscriber expected global event, got %d", len(got))
	}
}

func TestLocationScopedEventReachesMatchingSubscribersOnly(t *testing.T) {
	hub := NewHub(4)
	everything := hub.Subscribe()
	wardA := hub.Subscribe("ward-a")
	wardB := hub.Subscribe("ward-b")
	defer everything.Close()
	defer wardA.Close()
	defer wardB.Close()

	event := models.Event{Type: models.EventPatientDetected, Location: "ward-a"}
	if err := hub.Broadcast(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := drain(t, wardA); len(got) != 1 {
		t.Fatalf("ward-a subscriber expected 1 event, got %d", len(got))
	}
	if got := drain(t, wardB); len(got) != 0 {
		t.Fatalf("ward-b subscriber expected 0 events, got %d", len(got))
	}
	if got := drain(t, everything); len(got) != 1 {
		t.Fatalf("unfiltered subscriber expected 1 event, got %d", len(got))
	}
}

func TestBroadcastNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe()
	defer slow.Close()

	// Fill the buffer and keep broadcasting; the call must return, dropping
	// the overflow.
	for i := 0; i < 10; i++ {
		if err := hub.Broadcast(context.Background(), models.Event{Type: models.EventAlertCreated}); err != nil {
			t.Fatalf("unexpected error on broadcast %d: %v", i, err)
		}
	}

	if got := drain(t, slow); len(got) != 1 {
		t.Fatalf("expected exactly the buffered event, got %d", len(got))
	}
}

func TestBroadcastCancelledContext(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := hub.Broadcast(ctx, models.Event{Type: models.EventAlertCreated}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	sub.Close()
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", hub.SubscriberCount())
	}

	// Closing twice must be safe.
	sub.Close()

	if err := hub.Broadcast(context.Background(), models.Event{Type: models.EventAlertCreated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBroadcastStampsIdentityAndTimestamp(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	defer sub.Close()

	if err := hub.Broadcast(context.Background(), models.Event{Type: models.EventAlertCreated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := drain(t, sub)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Fatal("expected event id to be assigned")
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected event timestamp to be assigned")
	}
}
