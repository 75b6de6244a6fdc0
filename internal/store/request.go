package store

import (
	"context"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
)

type request interface{ isStoreRequest() }

type result[T any] struct {
	val T
	err error
}

type loadReq struct {
	ctx   context.Context
	reply chan result[engine.State]
}

type saveReq struct {
	ctx   context.Context
	state engine.State
	reply chan result[struct{}]
}

type allocateReq struct {
	ctx   context.Context
	name  string
	reply chan result[engine.Allocation]
}

type statusReq struct {
	ctx   context.Context
	reply chan result[engine.Status]
}

type resetReq struct {
	ctx   context.Context
	reply chan result[[]string]
}

func (loadReq) isStoreRequest()     {}
func (saveReq) isStoreRequest()     {}
func (allocateReq) isStoreRequest() {}
func (statusReq) isStoreRequest()   {}
func (resetReq) isStoreRequest()    {}

// call hands a request to the store goroutine and waits for its reply.
// Reply channels are buffered so the loop never blocks on a caller that
// stopped waiting.
func call[T any](s *Store, ctx context.Context, build func(chan result[T]) request) (T, error) {
	var zero T
	reply := make(chan result[T], 1)

	select {
	case s.inbox <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}

	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		select {
		case r := <-reply:
			return r.val, r.err
		default:
			return zero, ErrClosed
		}
	}
}
