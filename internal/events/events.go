// Package events announces assignment changes to other systems.
package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeAssigned Type = "assigned"
	TypeReset    Type = "reset"
)

type Event struct {
	Type  Type      `json:"type"`
	Name  string    `json:"name,omitempty"`
	Key   string    `json:"key,omitempty"`
	Hero  string    `json:"hero,omitempty"`
	Order []string  `json:"order,omitempty"`
	At    time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
