package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"storeratings/internal/apierr"
)

// Client is the HTTP transport for the ratings backend. It owns the
// base URL and injects the session token; everything above it works
// with typed requests and responses.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the given base URL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the session token sent as a Bearer header on
// every subsequent request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken drops the session token (logout).
func (c *Client) ClearToken() { c.SetToken("") }

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup creates an account and returns a session token for it.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserStores lists all stores with the caller's own rating attached.
func (c *Client) UserStores(ctx context.Context) ([]Store, error) {
	var resp storesResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/stores", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// SubmitRating records the caller's 1-5 star rating for a store.
func (c *Client) SubmitRating(ctx context.Context, storeID int64, rating int) error {
	return c.do(ctx, http.MethodPost, "/api/user/ratings",
		RatingRequest{StoreID: storeID, Rating: rating}, nil)
}

// OwnerDashboard lists the caller's stores with their rater history.
func (c *Client) OwnerDashboard(ctx context.Context) ([]OwnerStore, error) {
	var resp ownerDashboardResponse
	if err := c.do(ctx, http.MethodGet, "/api/owner/dashboard", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// AdminStats fetches the aggregate counters.
func (c *Client) AdminStats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/dashboard", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminUsers lists every account.
func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var resp usersResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// AdminStores lists every store.
func (c *Client) AdminStores(ctx context.Context) ([]Store, error) {
	var resp storesResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/stores", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// CreateStore registers a new store under the given owner.
func (c *Client) CreateStore(ctx context.Context, req NewStoreRequest) error {
	return c.do(ctx, http.MethodPost, "/api/admin/stores", req, nil)
}

// UpdateUserRole changes a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, userID int64, role Role) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", userID),
		RoleUpdateRequest{Role: role}, nil)
}

// do issues one request. A non-2xx response comes back as *apierr.Error
// carrying the status and the raw body; any other error means no
// response was received.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apierr.Error{Status: resp.StatusCode, Body: raw}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
