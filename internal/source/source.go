package source

import (
	"context"
	"encoding/json"
)

// Post is a feed item flattened out of the upstream feed view.
type Post struct {
	URI           string            `json:"uri"`
	CID           string            `json:"cid"`
	Author        Author            `json:"author"`
	Text          string            `json:"text"`
	Facets        []json.RawMessage `json:"facets"`
	CreatedAt     string            `json:"created_at"`
	IndexedAt     string            `json:"indexed_at"`
	Images        []Image           `json:"images"`
	External      *External         `json:"external"`
	Quote         *Quote            `json:"quote"`
	LikeCount     int               `json:"like_count"`
	RepostCount   int               `json:"repost_count"`
	ReplyCount    int               `json:"reply_count"`
	ViewerLike    string            `json:"viewer_like"`    // own like record uri, empty if none
	ViewerRepost  string            `json:"viewer_repost"`  // own repost record uri, empty if none
	IsRepost      bool              `json:"is_repost"`
	RepostedBy    string            `json:"reposted_by"`
	IsReply       bool              `json:"is_reply"`
	ReplyToHandle string            `json:"reply_to_handle"`
	ReplyToName   string            `json:"reply_to_name"`
}

// Author identifies the account that wrote a post.
type Author struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// Image is one attached image.
type Image struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

// External is a link preview card.
type External struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb"`
}

// Quote is the quoted post of a record embed.
type Quote struct {
	AuthorHandle string `json:"author_handle"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at"`
}

// Source fetches posts from an information stream.
type Source interface {
	// Name returns the source identifier (e.g. "timeline_me.bsky.social").
	Name() string

	// Fetch returns the current page of posts, freshest first.
	Fetch(ctx context.Context) ([]Post, error)
}
