package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/skyfeed/internal/source"
)

// MarkdownFormatter formats snapshots as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the snapshots as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, input Input) error {
	fmt.Fprintf(w, "# skyfeed\n\n")
	fmt.Fprintf(w, "%s, %s\n\n", plural(len(input.Feeds), "feed"), plural(input.TotalPosts(), "post"))

	if len(input.Feeds) == 0 {
		fmt.Fprintln(w, "No feeds configured.")
		return nil
	}

	for _, s := range input.Feeds {
		fmt.Fprintf(w, "## %s (`%s`)\n\n", s.Label, s.EntityID)
		if s.LastError != "" {
			fmt.Fprintf(w, "*Last poll failed: %s*\n\n", s.LastError)
		}
		if s.Count() == 0 {
			fmt.Fprintf(w, "No posts.\n\n")
			continue
		}
		for _, p := range s.Posts {
			f.writePost(w, p)
		}
	}
	return nil
}

func (f *MarkdownFormatter) writePost(w io.Writer, p source.Post) {
	fmt.Fprintf(w, "### %s (@%s) · %s\n\n", authorName(p.Author), p.Author.Handle, postedAt(p.CreatedAt))

	switch {
	case p.IsRepost && p.IsReply:
		fmt.Fprintf(w, "_Reposted by %s, replying to %s_\n\n", p.RepostedBy, p.ReplyToName)
	case p.IsRepost:
		fmt.Fprintf(w, "_Reposted by %s_\n\n", p.RepostedBy)
	case p.IsReply:
		fmt.Fprintf(w, "_Replying to %s_\n\n", p.ReplyToName)
	}

	if text := strings.TrimSpace(p.Text); text != "" {
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(w, "> %s\n", line)
		}
		fmt.Fprintln(w)
	}

	for _, img := range p.Images {
		fmt.Fprintf(w, "![%s](%s)\n", img.Alt, img.Thumb)
	}
	if len(p.Images) > 0 {
		fmt.Fprintln(w)
	}
	if e := p.External; e != nil {
		fmt.Fprintf(w, "- [%s](%s)\n\n", firstNonEmpty(e.Title, e.URI), e.URI)
	}
	if q := p.Quote; q != nil {
		fmt.Fprintf(w, "> **@%s**: %s\n\n", q.AuthorHandle, q.Text)
	}

	fmt.Fprintf(w, "%d likes, %d reposts, %d replies", p.LikeCount, p.RepostCount, p.ReplyCount)
	if u := PostURL(p); u != "" {
		fmt.Fprintf(w, " · [Open](%s)", u)
	}
	fmt.Fprintf(w, "\n\n")
}
