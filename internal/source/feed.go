package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	methodGetTimeline   = "app.bsky.feed.getTimeline"
	methodGetAuthorFeed = "app.bsky.feed.getAuthorFeed"
	methodGetFeed       = "app.bsky.feed.getFeed"

	authorFeedFilter = "posts_and_author_threads"

	MinPostLimit     = 1
	MaxPostLimit     = 50
	DefaultPostLimit = 20
)

// FeedType selects which upstream feed is polled.
type FeedType string

const (
	FeedTimeline FeedType = "timeline"
	FeedAuthor   FeedType = "author"
	FeedCustom   FeedType = "custom"
)

// FeedRequest describes the feed to poll. It is fixed at configuration time.
type FeedRequest struct {
	Type         FeedType
	AuthorHandle string // author feed actor; defaults to the session handle
	FeedURI      string // custom feed generator uri
	Limit        int
}

// Resolve returns the fetch path a request actually takes. A custom feed
// without a uri is not selectable and, like any unrecognized type, falls back
// to the author feed.
func (r FeedRequest) Resolve() FeedType {
	switch {
	case r.Type == FeedCustom && r.FeedURI != "":
		return FeedCustom
	case r.Type == FeedTimeline:
		return FeedTimeline
	default:
		return FeedAuthor
	}
}

// Label is the human-facing feed title.
func (r FeedRequest) Label() string {
	switch {
	case r.Type == FeedCustom && r.FeedURI != "":
		return lastSegment(r.FeedURI)
	case r.Type == FeedAuthor && r.AuthorHandle != "":
		return "@" + r.AuthorHandle
	default:
		return "Following"
	}
}

var _ Source = (*Feed)(nil)

// Feed polls one configured feed for one account.
type Feed struct {
	name    string
	client  *Client
	request FeedRequest
}

// NewFeed binds a feed request to a client.
func NewFeed(name string, client *Client, req FeedRequest) (*Feed, error) {
	if client == nil {
		return nil, errors.New("feed: client is required")
	}
	if req.Limit < MinPostLimit || req.Limit > MaxPostLimit {
		return nil, fmt.Errorf("feed: post limit %d out of range [%d, %d]", req.Limit, MinPostLimit, MaxPostLimit)
	}
	return &Feed{name: name, client: client, request: req}, nil
}

func (f *Feed) Name() string {
	return f.name
}

// Request returns the feed request as configured.
func (f *Feed) Request() FeedRequest {
	return f.request
}

// Authenticated reports whether the session holds an access token.
func (f *Feed) Authenticated() bool {
	return f.client.session.AccessToken() != ""
}

// EnsureSession authenticates the underlying session if it has no token yet.
func (f *Feed) EnsureSession(ctx context.Context) error {
	return f.client.session.EnsureAuthenticated(ctx)
}

// FetchFeed retrieves one page of the feed and decodes it generically so the
// normalizer can tolerate upstream schema drift.
func (f *Feed) FetchFeed(ctx context.Context) (map[string]any, error) {
	var (
		raw []byte
		err error
	)
	switch f.request.Resolve() {
	case FeedCustom:
		raw, err = f.client.FetchCustomFeed(ctx, f.request.FeedURI, f.request.Limit)
	case FeedTimeline:
		raw, err = f.client.FetchTimeline(ctx, f.request.Limit)
	default:
		actor := f.request.AuthorHandle
		if actor == "" {
			actor = f.client.session.Handle()
		}
		raw, err = f.client.FetchAuthorFeed(ctx, actor, f.request.Limit)
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return doc, nil
}

// Fetch authenticates if needed, fetches and normalizes one page.
func (f *Feed) Fetch(ctx context.Context) ([]Post, error) {
	if err := f.EnsureSession(ctx); err != nil {
		return nil, err
	}
	doc, err := f.FetchFeed(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(doc), nil
}

// FetchTimeline fetches the home timeline of the session account.
func (c *Client) FetchTimeline(ctx context.Context, limit int) ([]byte, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	return c.Get(ctx, xrpcURL(c.opts.PDSHost, methodGetTimeline), params, true)
}

// FetchAuthorFeed fetches posts and author-thread replies of actor.
func (c *Client) FetchAuthorFeed(ctx context.Context, actor string, limit int) ([]byte, error) {
	params := url.Values{
		"actor":  {actor},
		"limit":  {strconv.Itoa(limit)},
		"filter": {authorFeedFilter},
	}
	return c.Get(ctx, xrpcURL(c.opts.PublicHost, methodGetAuthorFeed), params, true)
}

// FetchCustomFeed fetches a feed generator by its at:// uri.
func (c *Client) FetchCustomFeed(ctx context.Context, feedURI string, limit int) ([]byte, error) {
	params := url.Values{
		"feed":  {feedURI},
		"limit": {strconv.Itoa(limit)},
	}
	return c.Get(ctx, xrpcURL(c.opts.PublicHost, methodGetFeed), params, true)
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Like records a like through the feed's session.
func (f *Feed) Like(ctx context.Context, uri, cid string) (string, error) {
	return f.client.Like(ctx, uri, cid)
}

// Unlike removes a like record.
func (f *Feed) Unlike(ctx context.Context, recordURI string) error {
	return f.client.Unlike(ctx, recordURI)
}

// Repost records a repost through the feed's session.
func (f *Feed) Repost(ctx context.Context, uri, cid string) (string, error) {
	return f.client.Repost(ctx, uri, cid)
}

// Unrepost removes a repost record.
func (f *Feed) Unrepost(ctx context.Context, recordURI string) error {
	return f.client.Unrepost(ctx, recordURI)
}
