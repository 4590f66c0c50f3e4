// Package registry maps entity ids to running feed coordinators.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/skyfeed/internal/poller"
)

// ErrNotFound is wrapped by every lookup miss.
var ErrNotFound = errors.New("not found")

// LookupError reports an entity id with no coordinator behind it.
type LookupError struct {
	EntityID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no feed registered for entity %q", e.EntityID)
}

func (e *LookupError) Unwrap() error {
	return ErrNotFound
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*poller.Coordinator
}

func New() *Registry {
	return &Registry{entries: make(map[string]*poller.Coordinator)}
}

// Register adds c under its name. Names must be unique.
func (r *Registry) Register(c *poller.Coordinator) error {
	if c == nil {
		return errors.New("registry: coordinator is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.Name()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("registry: entity %q already registered", id)
	}
	r.entries[id] = c
	return nil
}

// Remove drops the coordinator for id and returns it.
func (r *Registry) Remove(id string) (*poller.Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.entries[id]
	if !ok {
		return nil, &LookupError{EntityID: id}
	}
	delete(r.entries, id)
	return c, nil
}

// Lookup resolves id to its coordinator.
func (r *Registry) Lookup(id string) (*poller.Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[id]
	if !ok {
		return nil, &LookupError{EntityID: id}
	}
	return c, nil
}

// All returns every coordinator ordered by entity id.
func (r *Registry) All() []*poller.Coordinator {
	r.mu.RLock()
	out := make([]*poller.Coordinator, 0, len(r.entries))
	for _, c := range r.entries {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Like likes uri/cid through the coordinator registered as entity.
func (r *Registry) Like(ctx context.Context, entity, uri, cid string) (string, error) {
	c, err := r.Lookup(entity)
	if err != nil {
		return "", err
	}
	return c.Like(ctx, uri, cid)
}

// Unlike deletes a like record through entity's session.
func (r *Registry) Unlike(ctx context.Context, entity, recordURI string) error {
	c, err := r.Lookup(entity)
	if err != nil {
		return err
	}
	return c.Unlike(ctx, recordURI)
}

// Repost reposts uri/cid through the coordinator registered as entity.
func (r *Registry) Repost(ctx context.Context, entity, uri, cid string) (string, error) {
	c, err := r.Lookup(entity)
	if err != nil {
		return "", err
	}
	return c.Repost(ctx, uri, cid)
}

// Unrepost deletes a repost record through entity's session.
func (r *Registry) Unrepost(ctx context.Context, entity, recordURI string) error {
	c, err := r.Lookup(entity)
	if err != nil {
		return err
	}
	return c.Unrepost(ctx, recordURI)
}

// StopAll stops every coordinator's schedule.
func (r *Registry) StopAll() {
	for _, c := range r.All() {
		c.Stop()
	}
}
