package render

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/skyfeed/internal/poller"
)

type jsonOutput struct {
	Meta  jsonMeta   `json:"meta"`
	Feeds []jsonFeed `json:"feeds"`
}

type jsonMeta struct {
	Feeds      int `json:"feeds"`
	TotalPosts int `json:"total_posts"`
}

type jsonFeed struct {
	poller.Snapshot
	Count int `json:"count"`
}

// JSONFormatter formats snapshots as JSON.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the snapshots as indented JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input Input) error {
	out := jsonOutput{
		Meta: jsonMeta{
			Feeds:      len(input.Feeds),
			TotalPosts: input.TotalPosts(),
		},
		Feeds: make([]jsonFeed, 0, len(input.Feeds)),
	}
	for _, s := range input.Feeds {
		out.Feeds = append(out.Feeds, jsonFeed{Snapshot: s, Count: s.Count()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
