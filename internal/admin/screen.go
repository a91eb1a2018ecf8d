package admin

import (
	"context"
	"fmt"
	"strconv"

	"storeratings/internal/api"
	"storeratings/internal/screen"
	"storeratings/internal/session"
	"storeratings/pkg/validation"
)

// Synthetic guard keys for the create forms, which have no entity id
// yet. Negative so they can never collide with a server-assigned id.
const (
	guardIDNewStore int64 = -1
	guardIDNewUser  int64 = -2
)

const loadFailSummary = "Failed to load admin dashboard"

// Dashboard is the admin screen's authoritative snapshot: the stats
// counters plus the full user and store lists.
type Dashboard struct {
	Stats  api.Stats
	Users  []api.User
	Stores []api.Store
}

// Screen is the admin view: aggregate stats, user management with
// role changes, and store creation.
type Screen struct {
	*screen.Screen[Dashboard]
	client *api.Client
	sess   *session.Session
}

// NewStoreForm is the raw create-store input.
type NewStoreForm struct {
	Name    string
	Email   string
	Address string
	OwnerID string
}

// NewUserForm is the raw create-and-promote input.
type NewUserForm struct {
	Name     string
	Email    string
	Password string
}

// NewScreen returns the screen in its Idle state.
func NewScreen(c *api.Client, sess *session.Session) *Screen {
	return &Screen{
		Screen: screen.New[Dashboard]("admin"),
		client: c,
		sess:   sess,
	}
}

// Load is both entry and manual refresh; the gate runs before any fetch.
func (s *Screen) Load(ctx context.Context) {
	if !session.Check(s.sess, api.RoleAdmin) {
		s.Forbid()
		return
	}
	s.Screen.Load(ctx, s.fetchAll, loadFailSummary)
}

// fetchAll is the screen's single read path: stats, users, stores.
func (s *Screen) fetchAll(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	stats, err := s.client.AdminStats(ctx)
	if err != nil {
		return d, err
	}
	d.Stats = *stats

	if d.Users, err = s.client.AdminUsers(ctx); err != nil {
		return d, err
	}
	if d.Stores, err = s.client.AdminStores(ctx); err != nil {
		return d, err
	}
	return d, nil
}

// Owners returns the users eligible to own a store.
func (s *Screen) Owners() []api.User {
	var out []api.User
	for _, u := range s.Data().Users {
		if u.Role == api.RoleOwner {
			out = append(out, u)
		}
	}
	return out
}

// CreateStore validates the form, then registers the store and
// refetches the dashboard. Validation failures stay local: field
// errors land on the screen and no request is made.
func (s *Screen) CreateStore(ctx context.Context, form NewStoreForm) error {
	fields := validation.Trim(validation.Fields{
		"name":     form.Name,
		"email":    form.Email,
		"address":  form.Address,
		"owner_id": form.OwnerID,
	})
	if errs := validation.Validate(validation.FormNewStore, fields); len(errs) > 0 {
		s.Reject(errs)
		return screen.ErrValidation
	}

	// Address length is an input constraint, not a validation error.
	address := fields["address"]
	if len(address) > validation.MaxAddressLen {
		address = address[:validation.MaxAddressLen]
	}
	ownerID, _ := strconv.ParseInt(fields["owner_id"], 10, 64)

	return s.Mutate(ctx, guardIDNewStore,
		func(ctx context.Context) error {
			return s.client.CreateStore(ctx, api.NewStoreRequest{
				Name:    fields["name"],
				Email:   fields["email"],
				Address: address,
				OwnerID: ownerID,
			})
		},
		s.fetchAll,
		"Failed to create store")
}

// UpdateRole changes one user's role. The per-user guard keeps rapid
// repeated changes for the same row from overlapping while other rows
// stay editable.
func (s *Screen) UpdateRole(ctx context.Context, userID int64, role api.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	return s.Mutate(ctx, userID,
		func(ctx context.Context) error {
			return s.client.UpdateUserRole(ctx, userID, role)
		},
		s.fetchAll,
		"Failed to update user role")
}

// CreateAndPromote creates a new account with the given role and
// refetches. The created user's id is returned so the create-store
// form can preselect a freshly promoted owner.
func (s *Screen) CreateAndPromote(ctx context.Context, form NewUserForm, role api.Role) (int64, error) {
	fields := validation.Trim(validation.Fields{
		"name":     form.Name,
		"email":    form.Email,
		"password": form.Password,
	})
	if errs := validation.Validate(validation.FormNewUser, fields); len(errs) > 0 {
		s.Reject(errs)
		return 0, screen.ErrValidation
	}
	if !role.Valid() {
		return 0, fmt.Errorf("unknown role %q", role)
	}

	var createdID int64
	err := s.Mutate(ctx, guardIDNewUser,
		func(ctx context.Context) error {
			resp, err := s.client.Signup(ctx, api.SignupRequest{
				Name:     fields["name"],
				Email:    fields["email"],
				Password: form.Password,
				Role:     role,
			})
			if err != nil {
				return err
			}
			createdID = resp.User.ID
			return nil
		},
		s.fetchAll,
		"Failed to create and promote user")
	if err != nil {
		return 0, err
	}
	return createdID, nil
}

// Updating reports whether a role change for userID is in flight.
func (s *Screen) Updating(userID int64) bool { return s.Busy(userID) }
