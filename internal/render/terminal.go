package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/source"
)

// TerminalFormatter formats snapshots for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes each feed as a section of posts.
func (f *TerminalFormatter) Format(w io.Writer, input Input) error {
	header := fmt.Sprintf("skyfeed · %s, %s", plural(len(input.Feeds), "feed"), plural(input.TotalPosts(), "post"))
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if len(input.Feeds) == 0 {
		fmt.Fprintln(w, "No feeds configured.")
		return nil
	}

	for _, s := range input.Feeds {
		f.writeFeed(w, s)
	}
	return nil
}

func (f *TerminalFormatter) writeFeed(w io.Writer, s poller.Snapshot) {
	title := fmt.Sprintf("--- %s (%s, %d) ---", s.Label, s.EntityID, s.Count())
	fmt.Fprintln(w, f.cyan(f.bold(title)))
	if s.LastError != "" {
		fmt.Fprintln(w, f.red("  last poll failed: "+s.LastError))
	}
	fmt.Fprintln(w)

	if s.Count() == 0 {
		fmt.Fprintln(w, f.dim("  No posts."))
		fmt.Fprintln(w)
		return
	}
	for _, p := range s.Posts {
		f.writePost(w, p)
	}
}

func (f *TerminalFormatter) writePost(w io.Writer, p source.Post) {
	if p.IsRepost {
		fmt.Fprintf(w, "  %s\n", f.green("reposted by "+p.RepostedBy))
	}

	fmt.Fprintf(w, "  %s %s %s\n",
		f.bold(authorName(p.Author)),
		f.dim("@"+p.Author.Handle),
		f.dim(postedAt(p.CreatedAt)),
	)
	if p.IsReply {
		fmt.Fprintf(w, "    %s\n", f.dim("replying to "+p.ReplyToName))
	}

	for _, line := range strings.Split(strings.TrimSpace(p.Text), "\n") {
		if line != "" {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	if n := len(p.Images); n > 0 {
		fmt.Fprintf(w, "    %s\n", f.dim("["+plural(n, "image")+"]"))
	}
	if p.External != nil {
		fmt.Fprintf(w, "    %s\n", f.dim("link: "+firstNonEmpty(p.External.Title, p.External.URI)+" "+p.External.URI))
	}
	if q := p.Quote; q != nil {
		fmt.Fprintf(w, "    %s %s\n", f.yellow("> @"+q.AuthorHandle+":"), q.Text)
	}

	counts := fmt.Sprintf("likes %d · reposts %d · replies %d", p.LikeCount, p.RepostCount, p.ReplyCount)
	if p.ViewerLike != "" {
		counts += " · liked"
	}
	if p.ViewerRepost != "" {
		counts += " · reposted"
	}
	fmt.Fprintf(w, "    %s\n", f.dim(counts))
	if u := PostURL(p); u != "" {
		fmt.Fprintf(w, "    %s\n", f.dim(u))
	}
	fmt.Fprintln(w)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (f *TerminalFormatter) bold(s string) string   { return f.paint("1", s) }
func (f *TerminalFormatter) dim(s string) string    { return f.paint("2", s) }
func (f *TerminalFormatter) red(s string) string    { return f.paint("31", s) }
func (f *TerminalFormatter) green(s string) string  { return f.paint("32", s) }
func (f *TerminalFormatter) yellow(s string) string { return f.paint("33", s) }
func (f *TerminalFormatter) cyan(s string) string   { return f.paint("36", s) }
