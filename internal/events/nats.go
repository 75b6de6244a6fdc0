package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes each event as JSON on "<prefix>.<type>".
type NATS struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

var _ Publisher = (*NATS)(nil)

// Connect dials url and returns a publisher that closes the connection on Close.
func Connect(url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("hero-assign-backend"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := NewNATS(nc, prefix)
	p.owned = true
	return p, nil
}

// NewNATS wraps an existing connection; the caller keeps ownership of it.
func NewNATS(nc *nats.Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = "heroes"
	}
	return &NATS{nc: nc, prefix: prefix}
}

func (p *NATS) Subject(t Type) string { return p.prefix + "." + string(t) }

func (p *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Close drains the connection when the publisher dialed it itself.
func (p *NATS) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}
