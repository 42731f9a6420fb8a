package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/models"
	"github.com/starford/notegate/internal/view"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func count(msgs []string, eventType string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+eventType+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "session.reloaded", Data: map[string]int{"generation": 2}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: session.reloaded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"generation":2`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishView_DedupesAndTracksRevision(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	idle := view.View{Phase: "authenticated_idle", Revision: "r1"}
	b.PublishView(idle)
	b.PublishView(idle)
	busy := idle
	busy.Busy = true
	b.PublishView(busy)
	b.PublishView(view.View{Phase: "authenticated_idle", Revision: "r2", Notes: []view.Note{{ID: "1"}}})

	msgs := drain(ch)
	if got := count(msgs, EventState); got != 3 {
		t.Errorf("state events = %d, want 3 (identical view deduped)", got)
	}
	if got := count(msgs, EventNotes); got != 2 {
		t.Errorf("notes events = %d, want 2 (one per revision)", got)
	}
}

func TestSubscribeReplaysLatestState(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	b.PublishView(view.View{Phase: "unauthenticated", Revision: "r0"})
	b.PublishView(view.View{Phase: "redirected", Revision: "r0"})
	// Let the loop consume both views before subscribing.
	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("replayed %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], `"phase":"redirected"`) {
		t.Errorf("replay is not the latest state: %q", msgs[0])
	}
}

func TestFollowProjectsSnapshots(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	snaps := make(chan controller.Snapshot, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Follow(ctx, snaps)
		close(done)
	}()

	snaps <- controller.Snapshot{Phase: controller.PhaseIdle, Notes: []models.Note{{ID: "1", Title: "a"}}}
	close(snaps)
	<-done

	msgs := drain(ch)
	if count(msgs, EventState) != 1 {
		t.Fatalf("expected one state event, got %q", msgs)
	}
	if !strings.Contains(msgs[0], `"show_notes":false`) {
		t.Errorf("view not projected from snapshot: %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishView(view.View{Phase: "loading_notes"})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: state.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "state.updated", Data: nil})
	b.PublishView(view.View{})
}
