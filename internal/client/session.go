package client

import (
	"context"

	"github.com/eventhub/apiserver/types"
)

// Session is the explicit authentication state of a client application: the
// current identity, loaded from the persisted token at startup and cleared
// on logout or verification failure. No global state.
type Session struct {
	client *Client
	tokens TokenStore

	user          types.PublicUser
	authenticated bool
}

// NewSession constructs a Session over the given client and token store.
func NewSession(c *Client, tokens TokenStore) *Session {
	return &Session{client: c, tokens: tokens}
}

// Start loads the persisted token and verifies it against the server. An
// invalid or expired token is cleared and the session stays anonymous;
// only transport-level failures are returned as errors.
func (s *Session) Start(ctx context.Context) error {
	token, err := s.tokens.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	user, err := s.client.VerifyToken(ctx)
	if err != nil {
		if _, ok := err.(*APIError); ok {
			_ = s.tokens.Clear()
			return nil
		}
		return err
	}

	s.user = user
	s.authenticated = true
	return nil
}

// Login authenticates and persists the returned token.
func (s *Session) Login(ctx context.Context, email, password string) (types.PublicUser, error) {
	result, err := s.client.Login(ctx, email, password)
	if err != nil {
		return types.PublicUser{}, err
	}
	if err := s.tokens.Save(result.Token); err != nil {
		return types.PublicUser{}, err
	}

	s.user = result.User
	s.authenticated = true
	return result.User, nil
}

// Signup registers a new account and persists the returned token.
func (s *Session) Signup(ctx context.Context, params SignupParams) (types.PublicUser, error) {
	result, err := s.client.Signup(ctx, params)
	if err != nil {
		return types.PublicUser{}, err
	}
	if err := s.tokens.Save(result.Token); err != nil {
		return types.PublicUser{}, err
	}

	s.user = result.User
	s.authenticated = true
	return result.User, nil
}

// Logout clears the persisted token and the in-memory identity.
func (s *Session) Logout() error {
	s.user = types.PublicUser{}
	s.authenticated = false
	return s.tokens.Clear()
}

// IsAuthenticated reports whether a verified identity is present.
func (s *Session) IsAuthenticated() bool {
	return s.authenticated
}

// User returns the current identity; zero value when anonymous.
func (s *Session) User() types.PublicUser {
	return s.user
}
