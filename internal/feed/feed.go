// Package feed fans status snapshots out to live watchers.
package feed

import (
	"context"
	"maps"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
)

type Msg interface{ isFeedMsg() }

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isFeedMsg() {}

type Leave struct{ ClientID string }

func (Leave) isFeedMsg() {}

// Publish replaces the current status and broadcasts it. A status equal to
// the current one is ignored.
type Publish struct {
	Status engine.Status
}

func (Publish) isFeedMsg() {}

type Shutdown struct{}

func (Shutdown) isFeedMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isFeedMsg() {}

type Snapshot struct {
	Version int
	Status  engine.Status
}

type View struct {
	Version    int
	NumClients int
	Status     engine.Status
}

type Feed struct {
	inbox   chan Msg
	status  engine.Status
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, initial engine.Status) *Feed {
	ctx, cancel := context.WithCancel(parent)

	f := &Feed{
		inbox:   make(chan Msg, 64),
		status:  initial,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Join:
				// New watchers get the current snapshot right away.
				f.clients[msg.ClientID] = msg.Outbox
				f.send(msg.ClientID, msg.Outbox, Snapshot{Version: f.version, Status: f.status})

			case Leave:
				delete(f.clients, msg.ClientID)

			case Publish:
				if sameStatus(f.status, msg.Status) {
					break
				}
				f.status = msg.Status
				f.version++
				f.broadcast(Snapshot{Version: f.version, Status: f.status})

			case GetState:
				msg.Reply <- View{
					Version:    f.version,
					NumClients: len(f.clients),
					Status:     f.status,
				}

			case Shutdown:
				f.shutdown()
				return
			}
		}
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch) // no more snapshots
		delete(f.clients, id)
	}
	f.cancel()
}

func (f *Feed) broadcast(snap Snapshot) {
	for id, ch := range f.clients {
		f.send(id, ch, snap)
	}
}

// send drops a client whose outbox is full.
func (f *Feed) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		close(ch)
		delete(f.clients, id)
	}
}

func sameStatus(a, b engine.Status) bool {
	return a.Total == b.Total &&
		a.Assigned == b.Assigned &&
		a.Remaining == b.Remaining &&
		maps.Equal(a.Assignments, b.Assignments)
}

// Inbox exposes the message channel to the ws layer and tests.
func (f *Feed) Inbox() chan<- Msg { return f.inbox }

// Done is closed once the feed has stopped.
func (f *Feed) Done() <-chan struct{} { return f.ctx.Done() }

// Notify publishes st unless the feed has already stopped.
func (f *Feed) Notify(st engine.Status) {
	select {
	case f.inbox <- Publish{Status: st}:
	case <-f.ctx.Done():
	}
}
