package domain

import "time"

// ReferenceRepliedTo is the referenced-post type marking a mention as a reply.
const ReferenceRepliedTo = "replied_to"

// Mention is a post that references the bot account.
// Produced by the mentions API; immutable once fetched.
type Mention struct {
	ID               string    // post id (snowflake, decimal string)
	AuthorID         string    // id of the mentioning account
	Text             string    // mention body
	CreatedAt        time.Time // post creation time
	ReferencedPostID string    // id of the replied_to post, empty if not a reply
}

// IsReply reports whether the mention replies to another post.
func (m Mention) IsReply() bool {
	return m.ReferencedPostID != ""
}

// OriginalPost is the source post whose content gets tokenized.
type OriginalPost struct {
	ID           string
	AuthorID     string
	AuthorHandle string // username without '@'
	Text         string
}

// SourceURL returns the canonical URL the factory keys tokens by.
func (p OriginalPost) SourceURL() string {
	return SourceURL(p.AuthorHandle, p.ID)
}

// SourceURL builds https://x.com/<handle>/status/<id>.
func SourceURL(handle, postID string) string {
	return "https://x.com/" + handle + "/status/" + postID
}

// User is an account on the social platform.
type User struct {
	ID       string
	Username string
}

// Cursor is the id of the most recently processed mention.
// The zero value means nothing has been processed yet.
type Cursor string

// IsZero reports whether the cursor is unset.
func (c Cursor) IsZero() bool {
	return c == ""
}

// String returns the cursor value.
func (c Cursor) String() string {
	return string(c)
}
