package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
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
	ownerID int64
	userID  int64
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

	var err error
	_, err = f.srv.Seed("Site Admin", "admin@example.com", "admin@123456", api.RoleAdmin)
	require.NoError(t, err)
	f.ownerID, err = f.srv.Seed("Store Owner", "owner@example.com", "owner@123456", api.RoleOwner)
	require.NoError(t, err)
	f.userID, err = f.srv.Seed("Normal User", "user@example.com", "user@123456", api.RoleUser)
	require.NoError(t, err)
	return f
}

func (f *fixture) adminScreen(t *testing.T) *Screen {
	t.Helper()
	c := api.New(f.url)
	sess, errs, err := session.Login(context.Background(), c, "admin@example.com", "admin@123456")
	require.NoError(t, err)
	require.Empty(t, errs)

	s := NewScreen(c, sess)
	s.Load(context.Background())
	require.Equal(t, screen.Ready, s.Phase())
	return s
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	d := s.Data()
	assert.Equal(t, 3, d.Stats.UsersCount)
	assert.Zero(t, d.Stats.StoresCount)
	assert.Zero(t, d.Stats.RatingsCount)
	assert.Len(t, d.Users, 3)
	assert.Empty(t, d.Stores)

	owners := s.Owners()
	require.Len(t, owners, 1)
	assert.Equal(t, f.ownerID, owners[0].ID)
}

func TestLoad_WrongRoleForbiddenNoFetch(t *testing.T) {
	f := newFixture(t)
	c := api.New(f.url)
	sess, _, err := session.Login(context.Background(), c, "user@example.com", "user@123456")
	require.NoError(t, err)

	before := f.hits.Load()
	s := NewScreen(c, sess)
	s.Load(context.Background())
	assert.Equal(t, screen.Forbidden, s.Phase())
	assert.Equal(t, before, f.hits.Load())
}

func TestCreateStore_ValidationNoNetwork(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	before := f.hits.Load()
	err := s.CreateStore(context.Background(), NewStoreForm{
		Name:  "Book Nook",
		Email: "books@example.com",
		// owner_id left empty
	})
	assert.ErrorIs(t, err, screen.ErrValidation)
	assert.Equal(t, "Please select a store owner", s.FieldErrors()["owner_id"])
	assert.Equal(t, before, f.hits.Load(), "local validation failure makes no request")
	assert.Equal(t, screen.Ready, s.Phase())
}

func TestCreateStore_Success(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	err := s.CreateStore(context.Background(), NewStoreForm{
		Name:    "Book Nook",
		Email:   "  books@example.com  ",
		Address: " 2 High St ",
		OwnerID: strconv.FormatInt(f.ownerID, 10),
	})
	require.NoError(t, err)

	d := s.Data()
	assert.Equal(t, 1, d.Stats.StoresCount, "stats come from the refetch")
	require.Len(t, d.Stores, 1)
	assert.Equal(t, "Book Nook", d.Stores[0].Name)
	assert.Equal(t, "books@example.com", d.Stores[0].Email, "email trimmed before submission")
	assert.Equal(t, f.ownerID, d.Stores[0].OwnerID)
	assert.Empty(t, s.FieldErrors(), "form state cleared on success")
}

func TestCreateStore_ServerFieldMap(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	// Numeric but nonexistent owner passes client validation; the
	// server rejects with a per-field map.
	err := s.CreateStore(context.Background(), NewStoreForm{
		Name:    "Ghost Mart",
		Email:   "ghost@example.com",
		OwnerID: "9999",
	})
	require.Error(t, err)
	assert.Equal(t, screen.Ready, s.Phase(), "form stays open for correction")
	assert.Equal(t, "Selected owner does not exist", s.FieldErrors()["owner_id"])
	require.NotNil(t, s.Err())
	assert.Equal(t, "Please fix the highlighted fields", s.Err().Summary)
}

func TestUpdateRole(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	require.NoError(t, s.UpdateRole(context.Background(), f.userID, api.RoleOwner))

	var promoted *api.User
	for i, u := range s.Data().Users {
		if u.ID == f.userID {
			promoted = &s.Data().Users[i]
		}
	}
	require.NotNil(t, promoted)
	assert.Equal(t, api.RoleOwner, promoted.Role, "role read back from the refetch")
	assert.Len(t, s.Owners(), 2)
	assert.False(t, s.Updating(f.userID))
}

func TestUpdateRole_UnknownRole(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	before := f.hits.Load()
	err := s.UpdateRole(context.Background(), f.userID, api.Role("superuser"))
	require.Error(t, err)
	assert.Equal(t, before, f.hits.Load())
}

func TestUpdateRole_PlainStringError(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	err := s.UpdateRole(context.Background(), 9999, api.RoleOwner)
	require.Error(t, err)
	require.NotNil(t, s.Err())
	assert.Equal(t, "user not found", s.Err().Summary)
	assert.Empty(t, s.Err().Fields)
}

func TestCreateAndPromote(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	id, err := s.CreateAndPromote(context.Background(), NewUserForm{
		Name:     "Fresh Owner",
		Email:    "fresh@example.com",
		Password: "fresh@123456",
	}, api.RoleOwner)
	require.NoError(t, err)
	assert.Positive(t, id, "created id is returned so the store form can preselect it")

	var found bool
	for _, u := range s.Data().Users {
		if u.ID == id {
			found = true
			assert.Equal(t, api.RoleOwner, u.Role)
		}
	}
	assert.True(t, found)
	assert.Len(t, s.Owners(), 2)
}

func TestCreateAndPromote_ValidationNoNetwork(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)

	before := f.hits.Load()
	_, err := s.CreateAndPromote(context.Background(), NewUserForm{
		Name:     "ok name",
		Email:    "ok@example.com",
		Password: "short",
	}, api.RoleOwner)
	assert.ErrorIs(t, err, screen.ErrValidation)
	assert.Contains(t, s.FieldErrors(), "password")
	assert.Equal(t, before, f.hits.Load())
}

func TestRefreshAfterExternalChange(t *testing.T) {
	f := newFixture(t)
	s := f.adminScreen(t)
	require.Zero(t, s.Data().Stats.StoresCount)

	_, err := f.srv.SeedStore("Side Door", "side@example.com", f.ownerID)
	require.NoError(t, err)

	// Manual refresh uses the same read path as entry.
	s.Load(context.Background())
	require.Equal(t, screen.Ready, s.Phase())
	assert.Equal(t, 1, s.Data().Stats.StoresCount)
}
