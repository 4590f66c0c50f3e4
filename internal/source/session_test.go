package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/ppiankov/skyfeed/internal/source/sourcetest"
)

func newTestSession(t *testing.T, srv *sourcetest.Server, password string) *Session {
	t.Helper()
	s, err := NewSession(Credentials{Handle: sourcetest.DefaultHandle, Password: password}, Options{
		PDSHost:    srv.URL,
		PublicHost: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSession_Validation(t *testing.T) {
	if _, err := NewSession(Credentials{Password: "x"}, Options{}); err == nil {
		t.Error("expected error for empty handle")
	}
	if _, err := NewSession(Credentials{Handle: "a.test"}, Options{}); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestIsTokenExpired(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"401 empty body", http.StatusUnauthorized, "", true},
		{"401 json body", http.StatusUnauthorized, `{"error":"AuthenticationRequired"}`, true},
		{"400 expired", http.StatusBadRequest, `{"error":"ExpiredToken"}`, true},
		{"400 other code", http.StatusBadRequest, `{"error":"InvalidRequest"}`, false},
		{"400 not json", http.StatusBadRequest, `<html>bad gateway</html>`, false},
		{"400 empty", http.StatusBadRequest, ``, false},
		{"200", http.StatusOK, `{"error":"ExpiredToken"}`, false},
		{"500", http.StatusInternalServerError, `{"error":"ExpiredToken"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				if got := IsTokenExpired(tt.status, []byte(tt.body)); got != tt.want {
					t.Fatalf("attempt %d: IsTokenExpired(%d, %q) = %v, want %v", i, tt.status, tt.body, got, tt.want)
				}
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)
	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if s.AccessToken() != "access-1" {
		t.Errorf("access token = %q, want access-1", s.AccessToken())
	}
	if s.DID() != sourcetest.DefaultDID {
		t.Errorf("did = %q, want %q", s.DID(), sourcetest.DefaultDID)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, "wrong")
	err := s.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", authErr.StatusCode)
	}
	if authErr.Body == "" {
		t.Error("expected response body in error")
	}
	if s.AccessToken() != "" {
		t.Error("access token set after failed authentication")
	}
}

func TestRefresh_WithoutRefreshTokenAuthenticates(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	calls := srv.Calls()
	if len(calls) != 1 || calls[0] != "com.atproto.server.createSession" {
		t.Fatalf("calls = %v, want only createSession", calls)
	}
}

func TestRefresh_RotatesTokenPair(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)
	ctx := context.Background()
	if err := s.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if s.AccessToken() != "access-2" {
		t.Errorf("access token = %q, want access-2", s.AccessToken())
	}
	s.mu.RLock()
	refresh := s.refreshToken
	s.mu.RUnlock()
	if refresh != "refresh-2" {
		t.Errorf("refresh token = %q, want refresh-2", refresh)
	}
	if srv.CountCalls("com.atproto.server.createSession") != 1 {
		t.Error("refresh should not re-authenticate when the refresh token is accepted")
	}
}

func TestRefresh_FallsBackToAuthenticate(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)
	ctx := context.Background()
	if err := s.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	srv.RejectRefresh(true)

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh should fall back to authenticate, got %v", err)
	}

	want := []string{
		"com.atproto.server.createSession",
		"com.atproto.server.refreshSession",
		"com.atproto.server.createSession",
	}
	calls := srv.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if s.DID() != sourcetest.DefaultDID {
		t.Errorf("did changed to %q", s.DID())
	}
}

func TestRefreshAfter_SkipsWhenAlreadyReplaced(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)
	ctx := context.Background()
	if err := s.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	stale := s.AccessToken()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := s.refreshAfter(ctx, stale); err != nil {
		t.Fatalf("refreshAfter: %v", err)
	}
	if n := srv.CountCalls("com.atproto.server.refreshSession"); n != 1 {
		t.Errorf("refreshSession calls = %d, want 1", n)
	}
	if s.AccessToken() != "access-2" {
		t.Errorf("access token = %q, want access-2", s.AccessToken())
	}
}

func TestEnsureAuthenticated_Concurrent(t *testing.T) {
	srv := sourcetest.New()
	defer srv.Close()

	s := newTestSession(t, srv, sourcetest.DefaultPassword)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureAuthenticated(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureAuthenticated: %v", err)
		}
	}
	if n := srv.CountCalls("com.atproto.server.createSession"); n != 1 {
		t.Errorf("createSession calls = %d, want 1", n)
	}
}
