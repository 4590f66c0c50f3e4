package sourcetest

// TimelineFixture holds a repost of an image post followed by a plain reply.
const TimelineFixture = `{
  "feed": [
    {
      "post": {
        "uri": "at://did:plc:bob/app.bsky.feed.post/3kimage",
        "cid": "bafyimage",
        "author": {"did": "did:plc:bob", "handle": "bob.test", "displayName": "Bob", "avatar": "https://cdn.test/bob.jpg"},
        "record": {"$type": "app.bsky.feed.post", "text": "look at this", "createdAt": "2026-10-01T10:00:00.000Z",
          "facets": [{"index": {"byteStart": 0, "byteEnd": 4}, "features": [{"$type": "app.bsky.richtext.facet#tag", "tag": "look"}]}]},
        "embed": {"$type": "app.bsky.embed.images#view", "images": [
          {"thumb": "https://cdn.test/thumb.jpg", "fullsize": "https://cdn.test/full.jpg", "alt": "a cat"}
        ]},
        "likeCount": 12, "repostCount": 3, "replyCount": 1,
        "indexedAt": "2026-10-01T10:00:01.000Z",
        "viewer": {"like": "at://did:plc:alice/app.bsky.feed.like/3klike"}
      },
      "reason": {
        "$type": "app.bsky.feed.defs#reasonRepost",
        "by": {"did": "did:plc:carol", "handle": "carol.test", "displayName": "Carol"},
        "indexedAt": "2026-10-01T11:00:00.000Z"
      }
    },
    {
      "post": {
        "uri": "at://did:plc:dave/app.bsky.feed.post/3kreply",
        "cid": "bafyreply",
        "author": {"did": "did:plc:dave", "handle": "dave.test"},
        "record": {"$type": "app.bsky.feed.post", "text": "agreed", "createdAt": "2026-10-01T09:00:00.000Z"},
        "indexedAt": "2026-10-01T09:00:01.000Z"
      },
      "reply": {
        "root": {"uri": "at://did:plc:erin/app.bsky.feed.post/3kroot", "author": {"handle": "erin.test"}},
        "parent": {"uri": "at://did:plc:erin/app.bsky.feed.post/3kroot", "author": {"did": "did:plc:erin", "handle": "erin.test", "displayName": "Erin"}}
      }
    }
  ]
}`
