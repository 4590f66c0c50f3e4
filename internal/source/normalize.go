package source

import (
	"encoding/json"
	"strings"
)

const reasonRepost = "app.bsky.feed.defs#reasonRepost"

// Normalize converts a decoded feed response into posts, preserving feed
// order. Missing or mistyped fields fall back to zero values; it never fails.
func Normalize(doc map[string]any) []Post {
	items := list(doc, "feed")
	posts := make([]Post, 0, len(items))
	for _, raw := range items {
		item, _ := raw.(map[string]any)
		posts = append(posts, normalizeItem(item))
	}
	return posts
}

func normalizeItem(item map[string]any) Post {
	post := object(item, "post")
	author := object(post, "author")
	record := object(post, "record")
	viewer := object(post, "viewer")
	emb := parseEmbed(post["embed"])

	p := Post{
		URI: str(post, "uri"),
		CID: str(post, "cid"),
		Author: Author{
			DID:         str(author, "did"),
			Handle:      str(author, "handle"),
			DisplayName: str(author, "displayName"),
			Avatar:      str(author, "avatar"),
		},
		Text:         str(record, "text"),
		Facets:       rawList(record, "facets"),
		CreatedAt:    str(record, "createdAt"),
		IndexedAt:    str(post, "indexedAt"),
		Images:       emb.images(),
		External:     emb.external(),
		Quote:        emb.quote(),
		LikeCount:    count(post, "likeCount"),
		RepostCount:  count(post, "repostCount"),
		ReplyCount:   count(post, "replyCount"),
		ViewerLike:   str(viewer, "like"),
		ViewerRepost: str(viewer, "repost"),
	}

	reason := object(item, "reason")
	if str(reason, "$type") == reasonRepost {
		by := object(reason, "by")
		p.IsRepost = true
		p.RepostedBy = firstNonEmpty(str(by, "displayName"), str(by, "handle"))
	}

	parentAuthor := object(object(object(item, "reply"), "parent"), "author")
	if handle := str(parentAuthor, "handle"); handle != "" {
		p.IsReply = true
		p.ReplyToHandle = handle
		p.ReplyToName = firstNonEmpty(str(parentAuthor, "displayName"), handle)
	}

	return p
}

type embedKind int

const (
	embedNone embedKind = iota
	embedImages
	embedExternal
	embedRecord
	embedRecordWithMedia
)

// embedTags is matched in order against the embed $type; the first
// substring hit wins, so recordWithMedia must precede record.
var embedTags = []struct {
	fragment string
	kind     embedKind
}{
	{"recordWithMedia", embedRecordWithMedia},
	{"images", embedImages},
	{"external", embedExternal},
	{"record", embedRecord},
}

type embed struct {
	kind embedKind
	body map[string]any
}

func parseEmbed(v any) embed {
	body, _ := v.(map[string]any)
	if body == nil {
		return embed{}
	}
	return embed{kind: classifyEmbed(str(body, "$type")), body: body}
}

func classifyEmbed(tag string) embedKind {
	for _, t := range embedTags {
		if strings.Contains(tag, t.fragment) {
			return t.kind
		}
	}
	return embedNone
}

func (e embed) images() []Image {
	var src map[string]any
	switch e.kind {
	case embedImages:
		src = e.body
	case embedRecordWithMedia:
		media := object(e.body, "media")
		if classifyEmbed(str(media, "$type")) == embedImages {
			src = media
		}
	}

	images := []Image{}
	for _, raw := range list(src, "images") {
		img, _ := raw.(map[string]any)
		images = append(images, Image{
			Thumb:    str(img, "thumb"),
			Fullsize: str(img, "fullsize"),
			Alt:      str(img, "alt"),
		})
	}
	return images
}

func (e embed) external() *External {
	if e.kind != embedExternal {
		return nil
	}
	ext := object(e.body, "external")
	return &External{
		URI:         str(ext, "uri"),
		Title:       str(ext, "title"),
		Description: str(ext, "description"),
		Thumb:       str(ext, "thumb"),
	}
}

// quote resolves the quoted record. For recordWithMedia the view nests the
// record one level deeper; the nesting is assumed from the outer tag alone.
func (e embed) quote() *Quote {
	var rec map[string]any
	switch e.kind {
	case embedRecordWithMedia:
		rec = object(object(e.body, "record"), "record")
	case embedRecord:
		rec = object(e.body, "record")
	default:
		return nil
	}

	author := object(rec, "author")
	if len(author) == 0 {
		return nil
	}
	value := object(rec, "value")
	return &Quote{
		AuthorHandle: str(author, "handle"),
		AuthorName:   str(author, "displayName"),
		AuthorAvatar: str(author, "avatar"),
		Text:         str(value, "text"),
		CreatedAt:    str(value, "createdAt"),
	}
}

func object(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func list(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func count(m map[string]any, key string) int {
	v, _ := m[key].(float64)
	return int(v)
}

// rawList re-encodes each element so facets pass through untouched.
func rawList(m map[string]any, key string) []json.RawMessage {
	out := []json.RawMessage{}
	for _, v := range list(m, key) {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
