package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/hero-assign-backend/internal/storage"
)

func TestNewStore_ServesRequestsAfterSignal(t *testing.T) {
	sigCtx, stop := context.WithCancel(context.Background())
	s := newStore(sigCtx, storage.NewFile(filepath.Join(t.TempDir(), "assignments.json")))
	t.Cleanup(s.Close)

	// Signal arrives; in-flight handlers are still draining.
	stop()

	a, err := s.Allocate(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, a.Hero)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Assigned)
}
