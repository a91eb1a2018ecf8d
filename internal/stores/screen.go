package stores

import (
	"context"
	"errors"

	"storeratings/internal/api"
	"storeratings/internal/guard"
	"storeratings/internal/screen"
	"storeratings/internal/session"
)

// ErrBadRating rejects a rating outside the 1-5 star range before any
// network call. The star widget normally makes this unreachable.
var ErrBadRating = errors.New("rating must be between 1 and 5")

const loadFailSummary = "Failed to load stores. Please try again later."

// Screen is the end-user "rate stores" view: every store with its
// server-computed average and the caller's own rating.
type Screen struct {
	*screen.Screen[[]api.Store]
	client *api.Client
	sess   *session.Session
}

// NewScreen returns the screen in its Idle state.
func NewScreen(c *api.Client, sess *session.Session) *Screen {
	return &Screen{
		Screen: screen.New[[]api.Store]("stores"),
		client: c,
		sess:   sess,
	}
}

// Load is both entry and manual refresh. The gate runs first: a
// wrong-role session short-circuits to Forbidden with no fetch.
func (s *Screen) Load(ctx context.Context) {
	if !session.Check(s.sess, api.RoleUser) {
		s.Forbid()
		return
	}
	s.Screen.Load(ctx, s.client.UserStores, loadFailSummary)
}

// Rate submits the caller's rating for one store. The per-store guard
// refuses a second submission while one is pending; other stores stay
// rateable. On success the whole list is refetched so avg_rating and
// ratings_count come back server-computed.
func (s *Screen) Rate(ctx context.Context, storeID int64, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrBadRating
	}
	return s.Mutate(ctx, storeID,
		func(ctx context.Context) error {
			return s.client.SubmitRating(ctx, storeID, rating)
		},
		s.client.UserStores,
		"Failed to submit rating. Please try again.")
}

// Rating returns the caller's current rating for a store in the
// snapshot, 0 when not yet rated or unknown.
func (s *Screen) Rating(storeID int64) int {
	for _, st := range s.Data() {
		if st.ID == storeID {
			return st.UserRating
		}
	}
	return 0
}

// Submitting reports whether a rating for storeID is in flight,
// mirroring guard state for the row's busy indicator.
func (s *Screen) Submitting(storeID int64) bool { return s.Busy(storeID) }

// IsInFlightErr reports whether err is the guard refusing a duplicate
// submission.
func IsInFlightErr(err error) bool { return errors.Is(err, guard.ErrInFlight) }
