// Package stub is an in-memory stand-in for the ratings backend. It
// implements the same endpoints and, deliberately, the same three
// error shapes the real server mixes: express-validator lists on
// signup, per-field maps on store creation, and plain string errors
// elsewhere. Development and integration tests run against it.
package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"storeratings/internal/api"
	"storeratings/pkg/jwt"
	"storeratings/pkg/validation"
)

// Server holds the stub's state and handlers.
type Server struct {
	db *memDB
}

// NewServer returns an empty stub backend. jwt.Init must have been
// called before serving.
func NewServer() *Server {
	return &Server{db: newMemDB()}
}

// Seed creates an account directly, bypassing the HTTP surface.
// Returns the new user's id.
func (s *Server) Seed(name, email, password string, role api.Role) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	u, err := s.db.createUser(name, email, role, "", hash)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// Seeded reports whether an account with the given email exists.
func (s *Server) Seeded(email string) bool {
	return s.db.userByEmail(email) != nil
}

// SeedStore creates a store directly. Returns the new store's id.
func (s *Server) SeedStore(name, email string, ownerID int64) (int64, error) {
	st, err := s.db.createStore(name, email, "", ownerID)
	if err != nil {
		return 0, err
	}
	return st.ID, nil
}

// Routes returns the full router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.signup)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(jwt.RequireAuth, jwt.RequireRole(string(api.RoleUser)))
			r.Get("/user/stores", s.userStores)
			r.Post("/user/ratings", s.submitRating)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwt.RequireAuth, jwt.RequireRole(string(api.RoleOwner)))
			r.Get("/owner/dashboard", s.ownerDashboard)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwt.RequireAuth, jwt.RequireRole(string(api.RoleAdmin)))
			r.Get("/admin/dashboard", s.adminStats)
			r.Get("/admin/users", s.adminUsers)
			r.Get("/admin/stores", s.adminStores)
			r.Post("/admin/stores", s.createStore)
			r.Put("/admin/users/{id}", s.updateRole)
		})
	})
	return r
}

// signup rejects invalid input in the express-validator shape:
// {"errors":[{"param":"...","msg":"..."}]}.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	var list []paramError
	errs := validation.Validate(validation.FormSignup, validation.Fields{
		"name": req.Name, "email": req.Email, "password": req.Password,
	})
	for _, field := range []string{"name", "email", "password"} {
		if msg, ok := errs[field]; ok {
			list = append(list, paramError{Param: field, Msg: msg})
		}
	}
	if len(list) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": list})
		return
	}

	role := req.Role
	if !role.Valid() {
		role = api.RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	u, err := s.db.createUser(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email),
		role, strings.TrimSpace(req.Address), hash)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already registered"})
		return
	}

	token, err := jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, api.AuthResponse{
		Token: token,
		User:  api.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Address: u.Address},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	u := s.db.userByEmail(strings.TrimSpace(req.Email))
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email or password"})
		return
	}
	token, err := jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, api.AuthResponse{
		Token: token,
		User:  api.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Address: u.Address},
	})
}

func (s *Server) userStores(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"stores": s.db.storesFor(claims.UserID)})
}

func (s *Server) submitRating(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	var req api.RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Rating must be between 1 and 5"})
		return
	}
	if err := s.db.upsertRating(claims.UserID, req.StoreID, req.Rating); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) ownerDashboard(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"stores": s.db.ownerStores(claims.UserID)})
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.db.stats())
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": s.db.allUsers()})
}

func (s *Server) adminStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stores": s.db.storesFor(0)})
}

// createStore rejects invalid input as a per-field map:
// {"error":{"field":"message"}}.
func (s *Server) createStore(w http.ResponseWriter, r *http.Request) {
	var req api.NewStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	errs := validation.Validate(validation.FormNewStore, validation.Fields{
		"name":     req.Name,
		"email":    req.Email,
		"owner_id": strconv.FormatInt(req.OwnerID, 10),
	})
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": errs})
		return
	}

	if _, err := s.db.createStore(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email),
		strings.TrimSpace(req.Address), req.OwnerID); err != nil {
		if err == ErrDuplicateEmail {
			writeJSON(w, http.StatusUnprocessableEntity,
				map[string]any{"error": map[string]string{"email": "A store with this email already exists"}})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity,
			map[string]any{"error": map[string]string{"owner_id": "Selected owner does not exist"}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// updateRole reports failures as a plain string: {"error":"..."}.
func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	var req api.RoleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if !req.Role.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role"})
		return
	}
	if err := s.db.setRole(userID, req.Role); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paramError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
