// Package storage persists the assignment record.
package storage

import (
	"context"
	"errors"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
)

// ErrNotFound is returned by Load when nothing has been persisted yet.
var ErrNotFound = errors.New("no persisted state")

// Storage reads and overwrites the whole assignment record. Save must never
// let a concurrent Load observe a partially written record.
type Storage interface {
	Load(ctx context.Context) (engine.State, error)
	Save(ctx context.Context, s engine.State) error
}
