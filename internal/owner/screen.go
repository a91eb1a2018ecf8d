package owner

import (
	"context"

	"storeratings/internal/api"
	"storeratings/internal/screen"
	"storeratings/internal/session"
)

// Screen is the owner dashboard: the caller's stores with aggregate
// ratings and the per-store rater history, most recent first.
type Screen struct {
	*screen.Screen[[]api.OwnerStore]
	client *api.Client
	sess   *session.Session
}

// NewScreen returns the screen in its Idle state.
func NewScreen(c *api.Client, sess *session.Session) *Screen {
	return &Screen{
		Screen: screen.New[[]api.OwnerStore]("owner"),
		client: c,
		sess:   sess,
	}
}

// Load is both entry and manual refresh; the gate runs before any fetch.
func (s *Screen) Load(ctx context.Context) {
	if !session.Check(s.sess, api.RoleOwner) {
		s.Forbid()
		return
	}
	s.Screen.Load(ctx, s.client.OwnerDashboard,
		"Failed to load your stores. Please try again later.")
}

// Recent returns the most recent rating for a store in the snapshot,
// nil when the store has no ratings or is unknown. Raters are ordered
// most recent first, so this is index 0.
func (s *Screen) Recent(storeID int64) *api.Rater {
	for _, st := range s.Data() {
		if st.StoreID == storeID {
			if len(st.Raters) == 0 {
				return nil
			}
			r := st.Raters[0]
			return &r
		}
	}
	return nil
}
