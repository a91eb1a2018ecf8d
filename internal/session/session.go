package session

import (
	"context"
	"log"

	gojwt "github.com/golang-jwt/jwt/v5"

	"storeratings/internal/api"
	"storeratings/pkg/validation"
)

// Session is the client's authenticated identity. Created on a
// successful login or signup, destroyed on logout, and passed
// explicitly to every screen; the role is fixed for its lifetime.
type Session struct {
	Token string
	User  api.User
}

// Role returns the session's role.
func (s *Session) Role() api.Role { return s.User.Role }

// Home returns the screen a freshly authenticated session lands on.
func (s *Session) Home() string {
	switch s.User.Role {
	case api.RoleAdmin:
		return "admin"
	case api.RoleOwner:
		return "owner"
	default:
		return "user"
	}
}

// Check is the access gate: pure, synchronous, advisory. A screen
// that gets false must render a forbidden state and issue no fetch.
// The server re-validates every request regardless.
func Check(s *Session, required api.Role) bool {
	return s != nil && s.User.Role == required
}

// tokenClaims is the subset of the JWT payload the client inspects.
type tokenClaims struct {
	Role string `json:"role"`
	gojwt.RegisteredClaims
}

// RoleFromToken reads the role claim without verifying the signature.
// The client has no key material; the token is opaque credential, the
// claim is only a display/routing hint.
func RoleFromToken(token string) (api.Role, bool) {
	var claims tokenClaims
	parser := gojwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return "", false
	}
	r := api.Role(claims.Role)
	return r, r.Valid()
}

// Login validates credentials locally, then exchanges them for a
// session. Field errors block the network call.
func Login(ctx context.Context, c *api.Client, email, password string) (*Session, validation.Errors, error) {
	fields := validation.Trim(validation.Fields{"email": email, "password": password})
	if errs := validation.Validate(validation.FormLogin, fields); len(errs) > 0 {
		return nil, errs, nil
	}

	resp, err := c.Login(ctx, api.LoginRequest{Email: fields["email"], Password: password})
	if err != nil {
		return nil, nil, err
	}
	return establish(c, resp), nil, nil
}

// Signup validates the form locally, then creates the account and
// opens a session for it.
func Signup(ctx context.Context, c *api.Client, req api.SignupRequest) (*Session, validation.Errors, error) {
	fields := validation.Trim(validation.Fields{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
		"address":  req.Address,
	})
	if errs := validation.Validate(validation.FormSignup, fields); len(errs) > 0 {
		return nil, errs, nil
	}

	role := req.Role
	if !role.Valid() {
		role = api.RoleUser
	}
	resp, err := c.Signup(ctx, api.SignupRequest{
		Name:     fields["name"],
		Email:    fields["email"],
		Password: req.Password,
		Address:  fields["address"],
		Role:     role,
	})
	if err != nil {
		return nil, nil, err
	}
	return establish(c, resp), nil, nil
}

// Logout tears the session down and drops the transport token.
func Logout(c *api.Client, s *Session) {
	c.ClearToken()
	if s != nil {
		log.Printf("[session] logged out %s", s.User.Email)
		s.Token = ""
	}
}

func establish(c *api.Client, resp *api.AuthResponse) *Session {
	s := &Session{Token: resp.Token, User: resp.User}
	if !s.User.Role.Valid() {
		if r, ok := RoleFromToken(resp.Token); ok {
			s.User.Role = r
		}
	}
	c.SetToken(resp.Token)
	log.Printf("[session] established for %s (%s)", s.User.Email, s.User.Role)
	return s
}
