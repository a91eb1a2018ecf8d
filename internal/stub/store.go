package stub

import (
	"errors"
	"sort"
	"sync"
	"time"

	"storeratings/internal/api"
)

// ErrDuplicateEmail is returned when an email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

type userRecord struct {
	ID           int64
	Name         string
	Email        string
	Role         api.Role
	Address      string
	PasswordHash []byte
}

type storeRecord struct {
	ID      int64
	Name    string
	Email   string
	Address string
	OwnerID int64
}

type ratingRecord struct {
	ID        int64
	UserID    int64
	StoreID   int64
	Rating    int
	CreatedAt time.Time
}

// memDB is the stub's in-memory state. Aggregates (avg_rating,
// ratings_count) are always computed from the rating rows at read
// time, never stored.
type memDB struct {
	mu      sync.Mutex
	users   map[int64]*userRecord
	stores  map[int64]*storeRecord
	ratings map[int64]*ratingRecord
	nextID  int64
}

func newMemDB() *memDB {
	return &memDB{
		users:   make(map[int64]*userRecord),
		stores:  make(map[int64]*storeRecord),
		ratings: make(map[int64]*ratingRecord),
	}
}

func (d *memDB) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *memDB) createUser(name, email string, role api.Role, address string, hash []byte) (*userRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	u := &userRecord{
		ID: d.id(), Name: name, Email: email,
		Role: role, Address: address, PasswordHash: hash,
	}
	d.users[u.ID] = u
	return u, nil
}

func (d *memDB) userByEmail(email string) *userRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (d *memDB) setRole(userID int64, role api.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.Role = role
	return nil
}

func (d *memDB) createStore(name, email, address string, ownerID int64) (*storeRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	owner, ok := d.users[ownerID]
	if !ok || owner.Role != api.RoleOwner {
		return nil, errors.New("owner not found")
	}
	for _, s := range d.stores {
		if s.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	s := &storeRecord{ID: d.id(), Name: name, Email: email, Address: address, OwnerID: ownerID}
	d.stores[s.ID] = s
	return s, nil
}

// upsertRating records or replaces the user's rating for a store.
func (d *memDB) upsertRating(userID, storeID int64, rating int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.stores[storeID]; !ok {
		return errors.New("store not found")
	}
	for _, r := range d.ratings {
		if r.UserID == userID && r.StoreID == storeID {
			r.Rating = rating
			r.CreatedAt = time.Now()
			return nil
		}
	}
	r := &ratingRecord{
		ID: d.id(), UserID: userID, StoreID: storeID,
		Rating: rating, CreatedAt: time.Now(),
	}
	d.ratings[r.ID] = r
	return nil
}

// aggregate computes avg_rating and ratings_count for one store.
// Callers must hold d.mu.
func (d *memDB) aggregate(storeID int64) (float64, int) {
	sum, count := 0, 0
	for _, r := range d.ratings {
		if r.StoreID == storeID {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

// storesFor lists every store with aggregates, attaching viewerID's
// own rating when viewerID > 0.
func (d *memDB) storesFor(viewerID int64) []api.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.Store, 0, len(d.stores))
	for _, s := range d.stores {
		avg, count := d.aggregate(s.ID)
		row := api.Store{
			ID: s.ID, Name: s.Name, Email: s.Email, Address: s.Address,
			AvgRating: avg, RatingsCount: count, OwnerID: s.OwnerID,
		}
		if viewerID > 0 {
			for _, r := range d.ratings {
				if r.StoreID == s.ID && r.UserID == viewerID {
					row.UserRating = r.Rating
				}
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ownerStores lists ownerID's stores with rater history, most recent
// rating first.
func (d *memDB) ownerStores(ownerID int64) []api.OwnerStore {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.OwnerStore, 0)
	for _, s := range d.stores {
		if s.OwnerID != ownerID {
			continue
		}
		avg, count := d.aggregate(s.ID)
		row := api.OwnerStore{
			StoreID: s.ID, StoreName: s.Name, Email: s.Email, Address: s.Address,
			AvgRating: avg, RatingsCount: count, Raters: []api.Rater{},
		}
		for _, r := range d.ratings {
			if r.StoreID != s.ID {
				continue
			}
			u := d.users[r.UserID]
			if u == nil {
				continue
			}
			row.Raters = append(row.Raters, api.Rater{
				ID: r.ID, Name: u.Name, Email: u.Email,
				Rating: r.Rating, CreatedAt: r.CreatedAt,
			})
		}
		sort.Slice(row.Raters, func(i, j int) bool {
			return row.Raters[i].CreatedAt.After(row.Raters[j].CreatedAt)
		})
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}

func (d *memDB) allUsers() []api.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, api.User{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Address: u.Address,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *memDB) stats() api.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return api.Stats{
		UsersCount:   len(d.users),
		StoresCount:  len(d.stores),
		RatingsCount: len(d.ratings),
	}
}
