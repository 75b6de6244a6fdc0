package feed

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func expectClosed(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox not closed within %v", within)
		}
	}
}

func emptyStatus() engine.Status {
	return engine.StatusOf(engine.State{Order: engine.Pool(), Assignments: map[string]string{}})
}

func oneAssigned() engine.Status {
	return engine.StatusOf(engine.State{Order: engine.Pool(), Assignments: map[string]string{"alice": "thor"}})
}

func TestFeed_UnchangedStatusIsNotBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, engine.Status{})

	out := make(chan Snapshot, 4)
	f.Inbox() <- Join{ClientID: "admin", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	// Startup announces the freshly created record, then publishes it again.
	f.Notify(emptyStatus())
	f.Notify(emptyStatus())

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 1 {
		t.Fatalf("want version 1, got %d", first.Version)
	}
	recvNoSnapshot(t, out, 100*time.Millisecond)

	f.Notify(oneAssigned())
	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.Version != 2 {
		t.Fatalf("want version 2 after a real change, got %d", next.Version)
	}
}

func TestFeed_JoinGetsCurrentSnapshot_PublishBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, emptyStatus())

	out := make(chan Snapshot, 2)
	f.Inbox() <- Join{ClientID: "admin", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 0 || first.Status.Assigned != 0 {
		t.Fatalf("after join: want version 0 with nothing assigned, got %+v", first)
	}

	st := engine.StatusOf(engine.State{Order: engine.Pool(), Assignments: map[string]string{"alice": "thor"}})
	f.Notify(st)

	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after publish: want version 1, got %d", next.Version)
	}
	if next.Status.Assignments["alice"] != "thor" || next.Status.Remaining != 11 {
		t.Fatalf("after publish: unexpected status %+v", next.Status)
	}

	f.Inbox() <- Shutdown{}
}

func TestFeed_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, emptyStatus())

	// Buffer of one is filled by the join snapshot, so the publish overflows.
	out := make(chan Snapshot, 1)
	f.Inbox() <- Join{ClientID: "slow", Outbox: out}
	f.Inbox() <- Publish{Status: oneAssigned()}

	reply := make(chan View, 1)
	f.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
	if view.Version != 1 {
		t.Fatalf("want version 1, got %d", view.Version)
	}
}

func TestFeed_LeaveStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, emptyStatus())

	out := make(chan Snapshot, 4)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	f.Inbox() <- Leave{ClientID: "c1"}

	reply := make(chan View, 1)
	f.Inbox() <- GetState{Reply: reply}
	if v := recvView(t, reply, 100*time.Millisecond); v.NumClients != 0 {
		t.Fatalf("want 0 clients after leave, got %d", v.NumClients)
	}
}

func TestFeed_ShutdownClosesOutboxes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, emptyStatus())

	out := make(chan Snapshot, 2)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	f.Inbox() <- Shutdown{}

	expectClosed(t, out, 500*time.Millisecond)

	select {
	case <-f.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("feed did not stop")
	}

	// Notify after shutdown must not block.
	f.Notify(emptyStatus())
}
