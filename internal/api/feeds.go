package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/source"
)

// FeedSummary is one row of the feed listing.
type FeedSummary struct {
	EntityID  string          `json:"entity_id"`
	Label     string          `json:"label"`
	FeedType  source.FeedType `json:"feed_type"`
	State     poller.State    `json:"state"`
	Posts     int             `json:"posts"`
	UpdatedAt time.Time       `json:"updated_at"`
	LastError string          `json:"last_error,omitempty"`
}

// FeedDetail is a full snapshot with its post count.
type FeedDetail struct {
	poller.Snapshot
	Count int `json:"count"`
}

type postRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type recordRef struct {
	RecordURI string `json:"record_uri"`
}

// RegisterRoutes registers feed routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/feeds", func(r chi.Router) {
		r.Get("/", h.ListFeeds)
		r.Route("/{entity}", func(r chi.Router) {
			r.Get("/", h.GetFeed)
			r.Post("/like", h.Like)
			r.Post("/unlike", h.Unlike)
			r.Post("/repost", h.Repost)
			r.Post("/unrepost", h.Unrepost)
		})
	})
}

// ListFeeds summarizes every registered feed.
func (h *Handler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	coords := h.feeds.All()
	out := make([]FeedSummary, 0, len(coords))
	for _, c := range coords {
		s := c.Snapshot()
		out = append(out, FeedSummary{
			EntityID:  s.EntityID,
			Label:     s.Label,
			FeedType:  s.FeedType,
			State:     s.State,
			Posts:     s.Count(),
			UpdatedAt: s.UpdatedAt,
			LastError: s.LastError,
		})
	}
	JSON(w, http.StatusOK, out)
}

// GetFeed returns the snapshot of one feed.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	c, err := h.feeds.Lookup(chi.URLParam(r, "entity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s := c.Snapshot()
	JSON(w, http.StatusOK, FeedDetail{Snapshot: s, Count: s.Count()})
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.feeds.Like)
}

func (h *Handler) Repost(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.feeds.Repost)
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.feeds.Unlike)
}

func (h *Handler) Unrepost(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.feeds.Unrepost)
}

type createFunc func(ctx context.Context, entity, uri, cid string) (string, error)

type removeFunc func(ctx context.Context, entity, recordURI string) error

func (h *Handler) create(w http.ResponseWriter, r *http.Request, fn createFunc) {
	var req postRef
	if !decode(w, r, &req) {
		return
	}
	if req.URI == "" || req.CID == "" {
		Error(w, http.StatusBadRequest, "uri and cid are required")
		return
	}
	recordURI, err := fn(r.Context(), chi.URLParam(r, "entity"), req.URI, req.CID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, recordRef{RecordURI: recordURI})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, fn removeFunc) {
	var req recordRef
	if !decode(w, r, &req) {
		return
	}
	if req.RecordURI == "" {
		Error(w, http.StatusBadRequest, "record_uri is required")
		return
	}
	if err := fn(r.Context(), chi.URLParam(r, "entity"), req.RecordURI); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
