package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const (
	methodCreateSession  = "com.atproto.server.createSession"
	methodRefreshSession = "com.atproto.server.refreshSession"

	expiredTokenError = "ExpiredToken"
)

// Credentials are the account handle and app password used to open a session.
type Credentials struct {
	Handle   string
	Password string
}

// Session owns the credentials and token pair of one account.
//
// Token exchanges are serialized on exchangeMu; the token pair is swapped
// under mu so readers never observe an access token from one exchange next
// to a refresh token from another.
type Session struct {
	creds  Credentials
	opts   Options
	logger *slog.Logger

	exchangeMu sync.Mutex

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	did          string
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

// NewSession creates an unauthenticated session. No network call is made.
func NewSession(creds Credentials, opts Options) (*Session, error) {
	if strings.TrimSpace(creds.Handle) == "" {
		return nil, errors.New("session: handle is required")
	}
	if creds.Password == "" {
		return nil, errors.New("session: password is required")
	}
	opts = opts.withDefaults()
	return &Session{
		creds:  creds,
		opts:   opts,
		logger: opts.Logger.With("handle", creds.Handle),
	}, nil
}

// Handle returns the configured account handle.
func (s *Session) Handle() string {
	return s.creds.Handle
}

// AccessToken returns the current access token, empty before the first authentication.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// DID returns the account id learned at the first successful authentication.
func (s *Session) DID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.did
}

func (s *Session) hasRefreshToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken != ""
}

// Authenticate exchanges the stored credentials for a fresh token pair.
func (s *Session) Authenticate(ctx context.Context) error {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	return s.authenticate(ctx)
}

// EnsureAuthenticated authenticates only when no access token is held yet.
// Concurrent callers share a single createSession call.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	if s.AccessToken() != "" {
		return nil
	}
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	if s.AccessToken() != "" {
		return nil
	}
	return s.authenticate(ctx)
}

// Refresh mints a new token pair from the refresh token, falling back to a
// full authentication when no refresh token is held or the refresh fails.
func (s *Session) Refresh(ctx context.Context) error {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	return s.refresh(ctx)
}

// refreshAfter refreshes unless another caller already replaced stale.
func (s *Session) refreshAfter(ctx context.Context, stale string) error {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	if current := s.AccessToken(); current != "" && current != stale {
		return nil
	}
	return s.refresh(ctx)
}

func (s *Session) authenticate(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"identifier": s.creds.Handle,
		"password":   s.creds.Password,
	})
	if err != nil {
		return fmt.Errorf("session: encode credentials: %w", err)
	}

	status, body, err := roundTrip(ctx, s.opts.HTTPClient, http.MethodPost, xrpcURL(s.opts.PDSHost, methodCreateSession), nil, payload, "")
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	if status != http.StatusOK {
		return &AuthError{StatusCode: status, Body: string(body)}
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("session: decode create response: %w", err)
	}
	if resp.AccessJwt == "" || resp.RefreshJwt == "" || resp.DID == "" {
		return &AuthError{StatusCode: status, Body: "incomplete session response"}
	}

	s.mu.Lock()
	s.accessToken = resp.AccessJwt
	s.refreshToken = resp.RefreshJwt
	if s.did == "" {
		s.did = resp.DID
	} else if s.did != resp.DID {
		s.logger.Warn("session returned a different account id, keeping the first", "did", s.did, "returned", resp.DID)
	}
	s.mu.Unlock()

	s.logger.Debug("session created", "did", resp.DID)
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	if !s.hasRefreshToken() {
		return s.authenticate(ctx)
	}

	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	status, body, err := roundTrip(ctx, s.opts.HTTPClient, http.MethodPost, xrpcURL(s.opts.PDSHost, methodRefreshSession), nil, nil, refreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("session: refresh: %w", err)
		}
		s.logger.Warn("session refresh failed, re-authenticating", "error", err)
		return s.authenticate(ctx)
	}
	if status != http.StatusOK {
		s.logger.Warn("session refresh rejected, re-authenticating", "status", status)
		return s.authenticate(ctx)
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessJwt == "" || resp.RefreshJwt == "" {
		s.logger.Warn("session refresh returned an unusable body, re-authenticating")
		return s.authenticate(ctx)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessJwt
	s.refreshToken = resp.RefreshJwt
	s.mu.Unlock()

	s.logger.Debug("session refreshed")
	return nil
}

// IsTokenExpired reports whether a response means the access token is no
// longer accepted: any 401, or a 400 whose error code is ExpiredToken.
func IsTokenExpired(status int, body []byte) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusBadRequest:
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return false
		}
		return payload.Error == expiredTokenError
	default:
		return false
	}
}
