// Package render formats feed snapshots for people and scripts.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/source"
)

const webHost = "https://bsky.app"

// Input is the full input for a formatter.
type Input struct {
	Feeds []poller.Snapshot
}

// TotalPosts sums the posts over all feeds.
func (in Input) TotalPosts() int {
	n := 0
	for _, f := range in.Feeds {
		n += f.Count()
	}
	return n
}

// Formatter writes formatted snapshots to w.
type Formatter interface {
	Format(w io.Writer, input Input) error
}

// New returns the formatter for format: terminal, json or markdown.
func New(format string, color bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "terminal":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, json or markdown)", format)
	}
}

// PostURL is the bsky.app link for a post, or "" when the uri has no rkey.
func PostURL(p source.Post) string {
	i := strings.LastIndex(p.URI, "/")
	if i < 0 || i == len(p.URI)-1 {
		return ""
	}
	actor := p.Author.Handle
	if actor == "" {
		actor = p.Author.DID
	}
	if actor == "" {
		return ""
	}
	return webHost + "/profile/" + actor + "/post/" + p.URI[i+1:]
}

func authorName(a source.Author) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Handle
}

// postedAt renders an upstream timestamp as UTC minutes, or as-is when it
// does not parse.
func postedAt(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
