package api

import "time"

// Role is a session role as carried on the wire.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleOwner || r == RoleAdmin
}

// User is an account as returned by auth and admin endpoints.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Address string `json:"address,omitempty"`
}

// Store is a store row for the user and admin views. UserRating is
// only populated on the user view; 0 means not yet rated.
type Store struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Address      string  `json:"address,omitempty"`
	AvgRating    float64 `json:"avg_rating"`
	RatingsCount int     `json:"ratings_count"`
	OwnerID      int64   `json:"owner_id,omitempty"`
	UserRating   int     `json:"user_rating,omitempty"`
}

// Rater is one rating row on the owner dashboard.
type Rater struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerStore is a store as returned by the owner dashboard. The wire
// names differ from Store (store_id/store_name) and Raters is ordered
// most recent first, so Raters[0] is the "Recent Rating".
type OwnerStore struct {
	StoreID      int64   `json:"store_id"`
	StoreName    string  `json:"store_name"`
	Email        string  `json:"email"`
	Address      string  `json:"address,omitempty"`
	AvgRating    float64 `json:"avg_rating"`
	RatingsCount int     `json:"ratings_count"`
	Raters       []Rater `json:"raters"`
}

// Stats is the admin dashboard aggregate snapshot.
type Stats struct {
	UsersCount   int `json:"users_count"`
	StoresCount  int `json:"stores_count"`
	RatingsCount int `json:"ratings_count"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body for POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned on login / signup.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RatingRequest is the body for POST /api/user/ratings.
type RatingRequest struct {
	StoreID int64 `json:"store_id"`
	Rating  int   `json:"rating"`
}

// NewStoreRequest is the body for POST /api/admin/stores.
type NewStoreRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	OwnerID int64  `json:"owner_id"`
}

// RoleUpdateRequest is the body for PUT /api/admin/users/:id.
type RoleUpdateRequest struct {
	Role Role `json:"role"`
}

type storesResponse struct {
	Stores []Store `json:"stores"`
}

type usersResponse struct {
	Users []User `json:"users"`
}

type ownerDashboardResponse struct {
	Stores []OwnerStore `json:"stores"`
}
