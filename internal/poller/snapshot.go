package poller

import (
	"time"

	"github.com/ppiankov/skyfeed/internal/source"
)

// Snapshot is the read view of one coordinator.
type Snapshot struct {
	EntityID    string          `json:"entity_id"`
	Label       string          `json:"label"`
	FeedType    source.FeedType `json:"feed_type"`
	State       State           `json:"state"`
	Posts       []source.Post   `json:"posts"`
	LastError   string          `json:"last_error,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
	LastAttempt time.Time       `json:"last_attempt"`
}

// Count is the number of posts held.
func (s Snapshot) Count() int {
	return len(s.Posts)
}

// Ready reports whether at least one poll has succeeded.
func (s Snapshot) Ready() bool {
	return !s.UpdatedAt.IsZero()
}
