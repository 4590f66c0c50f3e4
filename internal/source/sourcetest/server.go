// Package sourcetest provides an in-memory XRPC backend for exercising the
// Bluesky client without network access.
package sourcetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

const (
	DefaultHandle   = "alice.test"
	DefaultPassword = "app-pass"
	DefaultDID      = "did:plc:alice"
)

// Server is a fake PDS + AppView. Both hosts are served from the same URL.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handle   string
	password string
	did      string

	seq          int
	access       string
	refresh      string
	expired      map[string]bool
	refreshFails bool
	feedStatus   int
	feedBody     string

	calls   []string
	queries map[string]url.Values
	bodies  map[string][]map[string]any

	records     map[string]map[string]string // collection -> rkey -> subject uri
	likeCount   map[string]int
	repostCount map[string]int
}

// New starts a server that accepts DefaultHandle / DefaultPassword.
func New() *Server {
	s := &Server{
		handle:      DefaultHandle,
		password:    DefaultPassword,
		did:         DefaultDID,
		expired:     make(map[string]bool),
		feedStatus:  http.StatusOK,
		feedBody:    `{"feed":[]}`,
		queries:     make(map[string]url.Values),
		bodies:      make(map[string][]map[string]any),
		records:     make(map[string]map[string]string),
		likeCount:   make(map[string]int),
		repostCount: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SetFeed sets the body returned by every feed endpoint.
func (s *Server) SetFeed(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedBody = body
	s.feedStatus = http.StatusOK
}

// FailFeed makes feed endpoints answer with status and body.
func (s *Server) FailFeed(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedStatus = status
	s.feedBody = body
}

// ExpireAccess marks the current access token as expired.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access != "" {
		s.expired[s.access] = true
	}
}

// RejectRefresh makes refreshSession fail.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFails = reject
}

// Calls returns the xrpc method names served, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CountCalls returns how many times method was served.
func (s *Server) CountCalls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

// LastQuery returns the query of the most recent call to method.
func (s *Server) LastQuery(method string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[method]
}

// Bodies returns the decoded JSON bodies posted to method.
func (s *Server) Bodies(method string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.bodies[method]...)
}

// LikeCount returns the number of live like records for subject.
func (s *Server) LikeCount(subject string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likeCount[subject]
}

// RepostCount returns the number of live repost records for subject.
func (s *Server) RepostCount(subject string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repostCount[subject]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/xrpc/")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, method)
	s.queries[method] = r.URL.Query()

	var body map[string]any
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
	}
	s.bodies[method] = append(s.bodies[method], body)

	switch method {
	case "com.atproto.server.createSession":
		s.createSession(w, body)
	case "com.atproto.server.refreshSession":
		s.refreshSession(w, r)
	case "app.bsky.feed.getTimeline", "app.bsky.feed.getAuthorFeed", "app.bsky.feed.getFeed":
		if !s.authorized(w, r) {
			return
		}
		writeRaw(w, s.feedStatus, s.feedBody)
	case "com.atproto.repo.createRecord":
		if !s.authorized(w, r) {
			return
		}
		s.createRecord(w, body)
	case "com.atproto.repo.deleteRecord":
		if !s.authorized(w, r) {
			return
		}
		s.deleteRecord(w, body)
	default:
		writeError(w, http.StatusNotImplemented, "MethodNotImplemented", method)
	}
}

func (s *Server) createSession(w http.ResponseWriter, body map[string]any) {
	if body["identifier"] != s.handle || body["password"] != s.password {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
		return
	}
	s.issueTokens()
	writeJSON(w, http.StatusOK, map[string]string{
		"accessJwt":  s.access,
		"refreshJwt": s.refresh,
		"did":        s.did,
		"handle":     s.handle,
	})
}

func (s *Server) refreshSession(w http.ResponseWriter, r *http.Request) {
	if s.refreshFails || r.Header.Get("Authorization") != "Bearer "+s.refresh {
		writeError(w, http.StatusBadRequest, "ExpiredToken", "Token has expired")
		return
	}
	s.issueTokens()
	writeJSON(w, http.StatusOK, map[string]string{
		"accessJwt":  s.access,
		"refreshJwt": s.refresh,
		"did":        s.did,
		"handle":     s.handle,
	})
}

func (s *Server) issueTokens() {
	s.seq++
	s.access = fmt.Sprintf("access-%d", s.seq)
	s.refresh = fmt.Sprintf("refresh-%d", s.seq)
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	switch {
	case token != "" && s.expired[token]:
		writeError(w, http.StatusBadRequest, "ExpiredToken", "Token has expired")
		return false
	case token == "" || token != s.access:
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "Authentication Required")
		return false
	}
	return true
}

func (s *Server) createRecord(w http.ResponseWriter, body map[string]any) {
	if body["repo"] != s.did {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "repo mismatch")
		return
	}
	collection, _ := body["collection"].(string)
	record, _ := body["record"].(map[string]any)
	subject, _ := record["subject"].(map[string]any)
	subjectURI, _ := subject["uri"].(string)
	if subjectURI == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "subject is required")
		return
	}

	s.seq++
	rkey := fmt.Sprintf("3rk%d", s.seq)
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]string)
	}
	s.records[collection][rkey] = subjectURI
	s.adjust(collection, subjectURI, 1)

	writeJSON(w, http.StatusOK, map[string]string{
		"uri": fmt.Sprintf("at://%s/%s/%s", s.did, collection, rkey),
		"cid": fmt.Sprintf("bafyrecord%d", s.seq),
	})
}

func (s *Server) deleteRecord(w http.ResponseWriter, body map[string]any) {
	if body["repo"] != s.did {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "repo mismatch")
		return
	}
	collection, _ := body["collection"].(string)
	rkey, _ := body["rkey"].(string)
	if subjectURI, ok := s.records[collection][rkey]; ok {
		delete(s.records[collection], rkey)
		s.adjust(collection, subjectURI, -1)
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) adjust(collection, subject string, delta int) {
	switch collection {
	case "app.bsky.feed.like":
		s.likeCount[subject] += delta
	case "app.bsky.feed.repost":
		s.repostCount[subject] += delta
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
