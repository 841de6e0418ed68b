package stub

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/social"
)

// Reply records one call to Client.Reply.
type Reply struct {
	ParentID string
	Text     string
}

// Client implements social.Client for testing.
// Mentions are served newest first and filtered by the cursor like the real API.
type Client struct {
	mu sync.Mutex

	User     domain.User
	Mentions []domain.Mention // newest first
	Posts    map[string]*domain.OriginalPost

	// Queued errors, consumed one per call before normal behavior.
	FetchErrs []error
	PostErrs  []error
	ReplyErrs []error

	Replies     []Reply
	FetchCalls  int
	FetchCursor []domain.Cursor
	nextReplyID int
}

// NewClient creates a stub client for user.
func NewClient(user domain.User) *Client {
	return &Client{
		User:        user,
		Posts:       make(map[string]*domain.OriginalPost),
		nextReplyID: 9000,
	}
}

// Compile-time interface check.
var _ social.Client = (*Client)(nil)

// AddPost registers a post for GetPost.
func (c *Client) AddPost(p *domain.OriginalPost) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Posts[p.ID] = p
}

// Me returns the configured user.
func (c *Client) Me(_ context.Context) (*domain.User, error) {
	u := c.User
	return &u, nil
}

// FetchMentions returns mentions with ids greater than cursor.
func (c *Client) FetchMentions(ctx context.Context, _ string, cursor domain.Cursor) (*social.MentionPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.FetchCalls++
	c.FetchCursor = append(c.FetchCursor, cursor)

	if len(c.FetchErrs) > 0 {
		err := c.FetchErrs[0]
		c.FetchErrs = c.FetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	page := &social.MentionPage{NextCursor: cursor}
	for _, m := range c.Mentions {
		if !cursor.IsZero() && !newer(m.ID, cursor.String()) {
			continue
		}
		page.Mentions = append(page.Mentions, m)
	}
	if len(page.Mentions) > 0 {
		page.NextCursor = domain.Cursor(page.Mentions[0].ID)
	}
	return page, nil
}

// GetPost returns a registered post.
func (c *Client) GetPost(_ context.Context, id string) (*domain.OriginalPost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.PostErrs) > 0 {
		err := c.PostErrs[0]
		c.PostErrs = c.PostErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	p, ok := c.Posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", social.ErrPostNotFound, id)
	}
	postCopy := *p
	return &postCopy, nil
}

// Reply records the reply and returns a synthetic id.
func (c *Client) Reply(_ context.Context, parentID, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ReplyErrs) > 0 {
		err := c.ReplyErrs[0]
		c.ReplyErrs = c.ReplyErrs[1:]
		if err != nil {
			return "", err
		}
	}

	c.Replies = append(c.Replies, Reply{ParentID: parentID, Text: text})
	c.nextReplyID++
	return strconv.Itoa(c.nextReplyID), nil
}

// RepliesSnapshot returns a copy of recorded replies.
func (c *Client) RepliesSnapshot() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Reply(nil), c.Replies...)
}

// newer compares decimal snowflake ids.
func newer(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
