// Package store owns the canonical event collection. It loads the collection
// once (durable storage first, bundled source second) and writes the whole
// collection back to durable storage before any mutation returns.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"example.com/golocalevents/internal/domain"
	"example.com/golocalevents/internal/filter"
	"example.com/golocalevents/internal/idempotency"
	"example.com/golocalevents/internal/source"
	"example.com/golocalevents/internal/storage"
)

// DefaultKey is the durable storage key of the serialized collection.
const DefaultKey = "goLocalEvents"

// Mutation operation names reported to the Observer.
const (
	OpCreate = "create"
	OpImport = "import"
	OpRsvp   = "rsvp"
	OpLoad   = "load"
)

// Observer receives store activity, typically for metrics.
type Observer interface {
	ObserveMutation(op string, err error)
	ObserveCount(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, error) {}
func (nopObserver) ObserveCount(int)              {}

// State is what consumers poll to render loading and error views.
type State struct {
	Loading bool
	Err     error
	Count   int
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.obs = o
		}
	}
}

// Store is safe for concurrent use. The events slice is copy-on-write: a
// mutation builds a new slice and only swaps it in after the write-through
// succeeded, so readers can hold a reference without copying.
type Store struct {
	backend storage.Backend
	source  source.Source
	key     string
	log     *zap.Logger
	obs     Observer

	initMu sync.Mutex

	mu      sync.RWMutex
	events  []domain.Event
	loading bool
	loaded  bool
	loadErr error
}

func New(backend storage.Backend, src source.Source, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		source:  src,
		key:     DefaultKey,
		log:     zap.NewNop(),
		obs:     nopObserver{},
		events:  []domain.Event{},
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the load state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Loading: s.loading, Err: s.loadErr, Count: len(s.events)}
}

// Initialize populates the collection. It is a no-op once it has succeeded;
// after a failure it may be called again.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.loadErr = nil
	s.mu.Unlock()

	events, from, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.loadErr = err
		s.obs.ObserveMutation(OpLoad, err)
		s.log.Error("initialize failed", zap.Error(err))
		return err
	}
	s.events = events
	s.loaded = true
	s.obs.ObserveMutation(OpLoad, nil)
	s.obs.ObserveCount(len(events))
	s.log.Info("initialized", zap.String("from", from), zap.Int("events", len(events)))
	return nil
}

func (s *Store) load(ctx context.Context) ([]domain.Event, string, error) {
	data, err := s.backend.Load(ctx, s.key)
	switch {
	case err == nil:
		events, decErr := decode(data)
		if decErr == nil {
			decErr = domain.ValidateCollection(events)
		}
		if decErr == nil {
			return events, "storage", nil
		}
		s.log.Warn("stored collection unusable, falling back to bundled source",
			zap.String("key", s.key), zap.Error(decErr))
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, "", &domain.LoadError{Op: "read storage", Err: err}
	}

	if s.source == nil {
		return nil, "", &domain.LoadError{Op: "fetch", Err: errors.New("no bundled source configured")}
	}
	events, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, "", &domain.LoadError{Op: "fetch", Err: err}
	}
	if err := domain.ValidateCollection(events); err != nil {
		return nil, "", &domain.LoadError{Op: "validate", Err: err}
	}
	data, err = encode(events)
	if err != nil {
		return nil, "", &domain.LoadError{Op: "encode", Err: err}
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return nil, "", &domain.LoadError{Op: "persist", Err: err}
	}
	return events, "source", nil
}

// Events returns a copy of the canonical collection in insertion order.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()
	return append([]domain.Event(nil), events...)
}

// Query runs the filter engine over the current collection.
func (s *Store) Query(c filter.Criteria) []domain.Event {
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()
	return filter.Apply(events, c)
}

// GetByID looks an event up by its textual id.
func (s *Store) GetByID(raw string) (domain.Event, error) {
	id, err := domain.ParseEventID(raw)
	if err != nil {
		return domain.Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.events, id); i >= 0 {
		return s.events[i], nil
	}
	return domain.Event{}, fmt.Errorf("%w: id %d", domain.ErrEventNotFound, id)
}

// Create assigns the next id, appends the event and persists the collection.
func (s *Store) Create(ctx context.Context, d domain.Draft) (domain.Event, error) {
	if errs := domain.ValidateDraft(&d); len(errs) > 0 {
		return domain.Event{}, &domain.ValidationError{Fields: errs}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return domain.Event{}, err
	}

	id, err := nextID(s.events)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.NewEvent(id, d)
	next := append(clone(s.events), ev)
	if err := s.commitLocked(ctx, OpCreate, next); err != nil {
		return domain.Event{}, err
	}
	s.log.Info("event created", zap.Int("id", ev.ID), zap.String("title", ev.Title))
	return ev, nil
}

// ImportResult reports what a bulk import did.
type ImportResult struct {
	Created []domain.Event
	Skipped int
	Invalid int
}

// Import creates a batch of drafts with a single write-through. Drafts that
// fail validation or whose idempotency key matches an existing event (or an
// earlier draft of the batch) are skipped.
func (s *Store) Import(ctx context.Context, drafts []domain.Draft) (ImportResult, error) {
	var res ImportResult

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return res, err
	}

	seen := make(map[string]struct{}, len(s.events)+len(drafts))
	for i := range s.events {
		seen[idempotency.KeyForEvent(&s.events[i])] = struct{}{}
	}

	next := clone(s.events)
	for i := range drafts {
		d := &drafts[i]
		if errs := domain.ValidateDraft(d); len(errs) > 0 {
			res.Invalid++
			continue
		}
		k := idempotency.KeyForDraft(d)
		if _, dup := seen[k]; dup {
			res.Skipped++
			continue
		}
		id, err := nextID(next)
		if err != nil {
			res.Created = nil
			return res, err
		}
		seen[k] = struct{}{}
		ev := domain.NewEvent(id, *d)
		next = append(next, ev)
		res.Created = append(res.Created, ev)
	}

	if len(res.Created) == 0 {
		return res, nil
	}
	if err := s.commitLocked(ctx, OpImport, next); err != nil {
		res.Created = nil
		return res, err
	}
	s.log.Info("events imported",
		zap.Int("created", len(res.Created)), zap.Int("skipped", res.Skipped), zap.Int("invalid", res.Invalid))
	return res, nil
}

// Rsvp increments attendance and marks the event as RSVP'd. Repeated calls
// increment again; there is no per-session guard.
func (s *Store) Rsvp(ctx context.Context, raw string) (domain.Event, error) {
	id, err := domain.ParseEventID(raw)
	if err != nil {
		return domain.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return domain.Event{}, err
	}
	i := indexOf(s.events, id)
	if i < 0 {
		return domain.Event{}, fmt.Errorf("%w: id %d", domain.ErrEventNotFound, id)
	}

	next := clone(s.events)
	next[i].Attendees++
	next[i].IsRsvped = true
	if err := s.commitLocked(ctx, OpRsvp, next); err != nil {
		return domain.Event{}, err
	}
	s.log.Info("rsvp", zap.Int("id", id), zap.Int("attendees", next[i].Attendees))
	return next[i], nil
}

// Ready reports whether the store is loaded and its backend reachable.
func (s *Store) Ready(ctx context.Context) error {
	s.mu.RLock()
	err := s.readyLocked()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return s.backend.Ready(ctx)
}

// Close releases the storage backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) readyLocked() error {
	if !s.loaded {
		if s.loadErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrNotReady, s.loadErr)
		}
		return domain.ErrNotReady
	}
	return nil
}

// commitLocked persists next and swaps it in. On failure the current
// collection is left untouched.
func (s *Store) commitLocked(ctx context.Context, op string, next []domain.Event) error {
	data, err := encode(next)
	if err == nil {
		err = s.backend.Save(ctx, s.key, data)
	}
	if err != nil {
		perr := &domain.PersistError{Op: op, Err: err}
		s.obs.ObserveMutation(op, perr)
		s.log.Error("write-through failed", zap.String("op", op), zap.Error(err))
		return perr
	}
	s.events = next
	s.obs.ObserveMutation(op, nil)
	s.obs.ObserveCount(len(next))
	return nil
}

// nextID is max+1, or 0 for an empty collection. It refuses to wrap.
func nextID(events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	hi := events[0].ID
	for _, ev := range events[1:] {
		if ev.ID > hi {
			hi = ev.ID
		}
	}
	if hi == math.MaxInt {
		return 0, fmt.Errorf("%w: highest id is %d", domain.ErrIDSpaceExhausted, hi)
	}
	return hi + 1, nil
}

func indexOf(events []domain.Event, id int) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(events []domain.Event) []domain.Event {
	out := make([]domain.Event, len(events), len(events)+1)
	copy(out, events)
	return out
}
