package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	methodCreateRecord = "com.atproto.repo.createRecord"
	methodDeleteRecord = "com.atproto.repo.deleteRecord"

	collectionLike   = "app.bsky.feed.like"
	collectionRepost = "app.bsky.feed.repost"
)

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type subjectRecord struct {
	Type      string    `json:"$type"`
	Subject   strongRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string        `json:"repo"`
	Collection string        `json:"collection"`
	Record     subjectRecord `json:"record"`
}

type deleteRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
}

// Like records a like of the post and returns the like record uri.
func (c *Client) Like(ctx context.Context, uri, cid string) (string, error) {
	return c.createSubjectRecord(ctx, collectionLike, uri, cid)
}

// Unlike deletes the like record at recordURI.
func (c *Client) Unlike(ctx context.Context, recordURI string) error {
	return c.deleteRecord(ctx, collectionLike, recordURI)
}

// Repost reposts the post and returns the repost record uri.
func (c *Client) Repost(ctx context.Context, uri, cid string) (string, error) {
	return c.createSubjectRecord(ctx, collectionRepost, uri, cid)
}

// Unrepost deletes the repost record at recordURI.
func (c *Client) Unrepost(ctx context.Context, recordURI string) error {
	return c.deleteRecord(ctx, collectionRepost, recordURI)
}

func (c *Client) createSubjectRecord(ctx context.Context, collection, uri, cid string) (string, error) {
	if uri == "" || cid == "" {
		return "", fmt.Errorf("%s: uri and cid are required", collection)
	}
	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}

	req := createRecordRequest{
		Repo:       c.session.DID(),
		Collection: collection,
		Record: subjectRecord{
			Type:      collection,
			Subject:   strongRef{URI: uri, CID: cid},
			CreatedAt: c.opts.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	body, err := c.Post(ctx, xrpcURL(c.opts.PDSHost, methodCreateRecord), req, true)
	if err != nil {
		return "", fmt.Errorf("%s: create record: %w", collection, err)
	}

	var resp strongRef
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode create response: %w", collection, err)
	}
	return resp.URI, nil
}

func (c *Client) deleteRecord(ctx context.Context, collection, recordURI string) error {
	rkey := lastSegment(recordURI)
	if rkey == "" {
		return errors.New(collection + ": record uri is required")
	}
	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return err
	}

	req := deleteRecordRequest{
		Repo:       c.session.DID(),
		Collection: collection,
		RKey:       rkey,
	}
	if _, err := c.Post(ctx, xrpcURL(c.opts.PDSHost, methodDeleteRecord), req, true); err != nil {
		return fmt.Errorf("%s: delete record: %w", collection, err)
	}
	return nil
}
