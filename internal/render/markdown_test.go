package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/skyfeed/internal/source"
)

var (
	sourceExternal = source.External{URI: "https://example.com", Title: "Example"}
	sourceQuote    = source.Quote{AuthorHandle: "frank.test", Text: "original"}
)

func TestMarkdown_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdown().Format(&buf, makeInput(t)); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# skyfeed",
		"2 feeds, 2 posts",
		"## Following (`timeline_alice.test`)",
		"### Bob (@bob.test) · 2026-10-01 10:00",
		"_Reposted by Carol_",
		"> look at this",
		"![a cat](https://cdn.test/thumb.jpg)",
		"12 likes, 3 reposts, 1 replies · [Open](https://bsky.app/profile/bob.test/post/3kimage)",
		"### dave.test (@dave.test)",
		"_Replying to Erin_",
		"## @bob.test (`author_bob.test`)",
		"*Last poll failed: api request failed (502): bad gateway*",
		"No posts.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdown_EmbedsAndQuote(t *testing.T) {
	input := makeInput(t)
	p := &input.Feeds[0].Posts[1]
	p.External = &sourceExternal
	p.Quote = &sourceQuote

	var buf bytes.Buffer
	if err := NewMarkdown().Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "- [Example](https://example.com)") {
		t.Error("missing external link")
	}
	if !strings.Contains(out, "> **@frank.test**: original") {
		t.Error("missing quote")
	}
}

func TestMarkdown_NoFeeds(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdown().Format(&buf, Input{}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "No feeds configured.") {
		t.Errorf("output = %q", buf.String())
	}
}
