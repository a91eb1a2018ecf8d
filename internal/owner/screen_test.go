package owner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeratings/internal/api"
	"storeratings/internal/screen"
	"storeratings/internal/session"
	"storeratings/internal/stub"
	"storeratings/pkg/jwt"
)

type fixture struct {
	srv     *stub.Server
	url     string
	hits    atomic.Int64
	storeID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, jwt.Init("test-secret"))

	f := &fixture{srv: stub.NewServer()}
	router := f.srv.Routes()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	f.url = ts.URL

	ownerID, err := f.srv.Seed("Store Owner", "owner@example.com", "owner@123456", api.RoleOwner)
	require.NoError(t, err)
	f.storeID, err = f.srv.SeedStore("Corner Grocery", "grocery@example.com", ownerID)
	require.NoError(t, err)
	return f
}

func (f *fixture) login(t *testing.T, email, password string) (*api.Client, *session.Session) {
	t.Helper()
	c := api.New(f.url)
	sess, errs, err := session.Login(context.Background(), c, email, password)
	require.NoError(t, err)
	require.Empty(t, errs)
	return c, sess
}

func (f *fixture) rateAs(t *testing.T, email string, rating int) {
	t.Helper()
	if !f.srv.Seeded(email) {
		_, err := f.srv.Seed("Rater "+email, email, "secret@12345", api.RoleUser)
		require.NoError(t, err)
	}
	c, _ := f.login(t, email, "secret@12345")
	require.NoError(t, c.SubmitRating(context.Background(), f.storeID, rating))
}

func TestLoad_Empty(t *testing.T) {
	f := newFixture(t)
	c, sess := f.login(t, "owner@example.com", "owner@123456")

	s := NewScreen(c, sess)
	s.Load(context.Background())
	require.Equal(t, screen.Ready, s.Phase())
	require.Len(t, s.Data(), 1)

	st := s.Data()[0]
	assert.Equal(t, "Corner Grocery", st.StoreName)
	assert.Zero(t, st.RatingsCount)
	assert.Empty(t, st.Raters)
	assert.Nil(t, s.Recent(f.storeID))
}

func TestLoad_RatersMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	f.rateAs(t, "first@example.com", 2)
	f.rateAs(t, "second@example.com", 5)
	f.rateAs(t, "third@example.com", 3)

	c, sess := f.login(t, "owner@example.com", "owner@123456")
	s := NewScreen(c, sess)
	s.Load(context.Background())
	require.Equal(t, screen.Ready, s.Phase())

	st := s.Data()[0]
	assert.Equal(t, 3, st.RatingsCount)
	assert.InDelta(t, 10.0/3.0, st.AvgRating, 1e-9)
	require.Len(t, st.Raters, 3)
	assert.Equal(t, "third@example.com", st.Raters[0].Email, "index 0 is the most recent rating")

	recent := s.Recent(f.storeID)
	require.NotNil(t, recent)
	assert.Equal(t, 3, recent.Rating)

	// ratings_count always matches the rater list length.
	assert.Len(t, st.Raters, st.RatingsCount)
}

func TestLoad_WrongRoleForbiddenNoFetch(t *testing.T) {
	f := newFixture(t)
	_, err := f.srv.Seed("Normal User", "user@example.com", "user@123456", api.RoleUser)
	require.NoError(t, err)
	c, sess := f.login(t, "user@example.com", "user@123456")

	before := f.hits.Load()
	s := NewScreen(c, sess)
	s.Load(context.Background())
	assert.Equal(t, screen.Forbidden, s.Phase())
	assert.Equal(t, before, f.hits.Load())
}

func TestRecent_UnknownStore(t *testing.T) {
	f := newFixture(t)
	c, sess := f.login(t, "owner@example.com", "owner@123456")
	s := NewScreen(c, sess)
	s.Load(context.Background())
	assert.Nil(t, s.Recent(9999))
}
