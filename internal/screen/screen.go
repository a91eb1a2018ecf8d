package screen

import (
	"context"
	"errors"
	"log"
	"sync"

	"storeratings/internal/apierr"
	"storeratings/internal/guard"
	"storeratings/pkg/validation"
)

// ErrValidation is returned by a screen mutation that was blocked by
// local validation. The field errors are on the screen; no network
// call was made.
var ErrValidation = errors.New("form has validation errors")

// Phase is a screen's position in its lifecycle.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Failed
	// Forbidden is terminal: entered before any fetch when the access
	// gate rejects, never left.
	Forbidden
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Screen owns one view's state machine: phase, the authoritative data
// snapshot, the last normalized error, open-form field errors, and the
// per-screen in-flight write set. All methods are safe for concurrent
// use; requests for different entities proceed independently.
type Screen[T any] struct {
	name     string
	inflight *guard.InFlight

	mu        sync.Mutex
	phase     Phase
	data      T
	lastErr   *apierr.Normalized
	fieldErrs validation.Errors
	closed    bool
}

// New returns an Idle screen. name is used only for logging.
func New[T any](name string) *Screen[T] {
	return &Screen[T]{name: name, inflight: guard.New()}
}

// Load transitions to Loading and runs fetch. On success the response
// replaces the snapshot wholesale and the screen becomes Ready; on
// failure any previous snapshot is discarded and the screen becomes
// Failed with the normalized error. Used for entry, manual refresh,
// and the refetch after a successful mutation.
func (s *Screen[T]) Load(ctx context.Context, fetch func(context.Context) (T, error), failSummary string) {
	s.mu.Lock()
	if s.phase == Forbidden || s.closed {
		s.mu.Unlock()
		return
	}
	s.phase = Loading
	s.lastErr = nil
	s.mu.Unlock()

	data, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// Screen torn down while the request was outstanding.
		return
	}
	if err != nil {
		n := apierr.FromError(err, failSummary)
		log.Printf("[%s] load failed: %s", s.name, n.Summary)
		var zero T
		s.data = zero
		s.lastErr = &n
		s.phase = Failed
		return
	}
	s.data = data
	s.lastErr = nil
	s.phase = Ready
}

// Forbid puts the screen in its terminal Forbidden state without
// issuing any request.
func (s *Screen[T]) Forbid() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = Forbidden
	log.Printf("[%s] access denied", s.name)
}

// Mutate runs write under the entity guard, then refetches the full
// authoritative snapshot on success. On a write failure the screen
// stays Ready with the normalized error surfaced into the open form.
// Returns guard.ErrInFlight if a write for entityID is already pending.
func (s *Screen[T]) Mutate(ctx context.Context, entityID int64,
	write func(context.Context) error,
	fetch func(context.Context) (T, error),
	failSummary string) error {

	err := s.inflight.Do(entityID, func() error {
		return write(ctx)
	})
	if err == guard.ErrInFlight {
		return err
	}
	if err != nil {
		n := apierr.FromError(err, failSummary)
		log.Printf("[%s] write for entity %d failed: %s", s.name, entityID, n.Summary)
		s.mu.Lock()
		if !s.closed {
			s.lastErr = &n
			s.fieldErrs = n.Fields
		}
		s.mu.Unlock()
		return err
	}

	// Guard released above; derived aggregates come back from the
	// server, never patched locally.
	s.ClearFormErrors()
	s.Load(ctx, fetch, failSummary)
	return nil
}

// Reject surfaces local validation errors without any network call.
// The screen stays in its current phase.
func (s *Screen[T]) Reject(errs validation.Errors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldErrs = errs
}

// ClearFormErrors resets form/error state after a successful submit
// or a dismissed form.
func (s *Screen[T]) ClearFormErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldErrs = nil
	s.lastErr = nil
}

// Close tears the screen down; late completions are discarded.
func (s *Screen[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Phase returns the current lifecycle phase.
func (s *Screen[T]) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Data returns the authoritative snapshot from the last successful load.
func (s *Screen[T]) Data() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Err returns the last normalized error, nil when none.
func (s *Screen[T]) Err() *apierr.Normalized {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// FieldErrors returns the active field-error map for the open form.
func (s *Screen[T]) FieldErrors() validation.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrs
}

// Busy reports whether a write for the given entity is pending,
// used to disable that row's control.
func (s *Screen[T]) Busy(entityID int64) bool {
	return s.inflight.Busy(entityID)
}

// ActiveWrites returns the ids with writes currently in flight.
func (s *Screen[T]) ActiveWrites() []int64 {
	return s.inflight.Active()
}
