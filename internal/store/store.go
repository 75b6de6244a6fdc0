// Package store implements the assignment store: load, save, allocate,
// status and reset over a Storage backend.
//
// Every operation runs on a single goroutine, so load-modify-save cycles
// never interleave inside one process. Nothing is cached between calls;
// the backend stays the source of truth.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
	"github.com/DoyleJ11/hero-assign-backend/internal/events"
	"github.com/DoyleJ11/hero-assign-backend/internal/metrics"
	"github.com/DoyleJ11/hero-assign-backend/internal/storage"
)

var ErrClosed = errors.New("store closed")

// publishTimeout bounds event delivery after a mutation has been persisted.
const publishTimeout = 2 * time.Second

// Notifier receives the status after every persisted change.
type Notifier interface {
	Notify(engine.Status)
}

type Store struct {
	inbox    chan request
	storage  storage.Storage
	shuffler engine.Shuffler
	notifier Notifier
	events   events.Publisher
	metrics  metrics.Collector
	log      *zap.Logger
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

type Option func(*Store)

// WithShuffler sets the random source for new orders.
func WithShuffler(sh engine.Shuffler) Option { return func(s *Store) { s.shuffler = sh } }

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithPublisher(p events.Publisher) Option { return func(s *Store) { s.events = p } }

func WithMetrics(m metrics.Collector) Option { return func(s *Store) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(parent context.Context, st storage.Storage, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(parent)
	s := &Store{
		inbox:    make(chan request, 64),
		storage:  st,
		shuffler: engine.DefaultShuffler,
		events:   events.Nop{},
		metrics:  metrics.Nop{},
		log:      zap.NewNop(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "store"))

	go s.loop()
	return s
}

// Load returns the persisted record, creating and persisting a fresh one
// when none exists. The returned state always carries a full order.
func (s *Store) Load(ctx context.Context) (engine.State, error) {
	return call(s, ctx, func(reply chan result[engine.State]) request {
		return loadReq{ctx: ctx, reply: reply}
	})
}

// Save overwrites the persisted record with st.
func (s *Store) Save(ctx context.Context, st engine.State) error {
	_, err := call(s, ctx, func(reply chan result[struct{}]) request {
		return saveReq{ctx: ctx, state: st, reply: reply}
	})
	return err
}

// Allocate registers name and returns its hero. Re-registering a name
// returns the hero it already holds.
func (s *Store) Allocate(ctx context.Context, name string) (engine.Allocation, error) {
	return call(s, ctx, func(reply chan result[engine.Allocation]) request {
		return allocateReq{ctx: ctx, name: name, reply: reply}
	})
}

func (s *Store) Status(ctx context.Context) (engine.Status, error) {
	return call(s, ctx, func(reply chan result[engine.Status]) request {
		return statusReq{ctx: ctx, reply: reply}
	})
}

// Reset discards every assignment and reshuffles the pool. It returns the
// new order.
func (s *Store) Reset(ctx context.Context) ([]string, error) {
	return call(s, ctx, func(reply chan result[[]string]) request {
		return resetReq{ctx: ctx, reply: reply}
	})
}

// Close stops the store goroutine. Pending and later calls get ErrClosed.
func (s *Store) Close() {
	s.cancel()
	<-s.done
}

func (s *Store) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return

		case r := <-s.inbox:
			switch req := r.(type) {
			case loadReq:
				st, err := s.load(req.ctx)
				req.reply <- result[engine.State]{val: st, err: err}

			case saveReq:
				err := s.save(req.ctx, req.state)
				req.reply <- result[struct{}]{err: err}

			case allocateReq:
				a, err := s.allocate(req.ctx, req.name)
				req.reply <- result[engine.Allocation]{val: a, err: err}

			case statusReq:
				st, err := s.load(req.ctx)
				req.reply <- result[engine.Status]{val: engine.StatusOf(st), err: err}

			case resetReq:
				order, err := s.reset(req.ctx)
				req.reply <- result[[]string]{val: order, err: err}
			}
		}
	}
}

func (s *Store) load(ctx context.Context) (engine.State, error) {
	st, err := s.storage.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		st = engine.NewState(s.shuffler)
		if err := s.storage.Save(ctx, st); err != nil {
			return engine.State{}, fmt.Errorf("persist initial state: %w", err)
		}
		s.log.Info("created assignment state", zap.Strings("order", st.Order))
		s.changed(st)
		return st, nil
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("load state: %w", err)
	}

	repaired, changed := engine.Repair(st, s.shuffler)
	if changed {
		if err := s.storage.Save(ctx, repaired); err != nil {
			return engine.State{}, fmt.Errorf("persist repaired state: %w", err)
		}
		s.log.Warn("repaired persisted state",
			zap.Int("assignments_before", len(st.Assignments)),
			zap.Int("assignments_after", len(repaired.Assignments)))
		s.changed(repaired)
	}
	return repaired, nil
}

func (s *Store) save(ctx context.Context, st engine.State) error {
	if err := s.storage.Save(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.changed(st)
	return nil
}

func (s *Store) allocate(ctx context.Context, name string) (engine.Allocation, error) {
	if engine.NormalizeName(name) == "" {
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return engine.Allocation{}, engine.ErrInvalidName
	}

	st, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return engine.Allocation{}, err
	}

	a, next, err := engine.Allocate(st, name)
	switch {
	case errors.Is(err, engine.ErrPoolExhausted):
		s.metrics.RecordRegistration(metrics.ResultExhausted)
		s.log.Info("pool exhausted", zap.String("name", engine.NormalizeName(name)))
		return engine.Allocation{}, err
	case err != nil:
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return engine.Allocation{}, err
	}

	if a.AlreadyAssigned {
		s.metrics.RecordRegistration(metrics.ResultAlreadyAssigned)
		return a, nil
	}

	if err := s.storage.Save(ctx, next); err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return engine.Allocation{}, fmt.Errorf("save assignment: %w", err)
	}

	s.metrics.RecordRegistration(metrics.ResultAssigned)
	s.log.Info("hero assigned", zap.String("name", a.Key), zap.String("hero", a.Hero))
	s.changed(next)
	s.publish(ctx, events.Event{Type: events.TypeAssigned, Name: a.Name, Key: a.Key, Hero: a.Hero})
	return a, nil
}

func (s *Store) reset(ctx context.Context) ([]string, error) {
	st := engine.NewState(s.shuffler)
	if err := s.storage.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save reset state: %w", err)
	}

	s.metrics.RecordReset()
	s.log.Info("assignments reset", zap.Strings("order", st.Order))
	s.changed(st)
	s.publish(ctx, events.Event{Type: events.TypeReset, Order: st.Order})
	return st.Order, nil
}

// changed runs after st has been persisted.
func (s *Store) changed(st engine.State) {
	status := engine.StatusOf(st)
	s.metrics.SetRemaining(status.Remaining)
	if s.notifier != nil {
		s.notifier.Notify(status)
	}
}

// publish never fails the caller: the change is already persisted.
func (s *Store) publish(ctx context.Context, e events.Event) {
	e.At = s.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
