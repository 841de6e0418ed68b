// Package social talks to the X API v2: mentions, post lookup, replies.
package social

import (
	"context"

	"mention-token-bot/internal/domain"
)

// Client defines the mentions API surface used by the bot.
// Implementations never retry; retry policy belongs to the caller.
type Client interface {
	// Me returns the authenticated account.
	Me(ctx context.Context) (*domain.User, error)

	// FetchMentions returns mentions of userID newer than cursor, newest first.
	// An empty cursor fetches the configured rolling window instead.
	FetchMentions(ctx context.Context, userID string, cursor domain.Cursor) (*MentionPage, error)

	// GetPost retrieves a post with its author handle.
	GetPost(ctx context.Context, id string) (*domain.OriginalPost, error)

	// Reply posts text as a reply to parentID and returns the new post id.
	Reply(ctx context.Context, parentID, text string) (string, error)
}

// MentionPage is one fetch of the mentions timeline.
type MentionPage struct {
	Mentions   []domain.Mention // newest first, as delivered
	NextCursor domain.Cursor    // newest id seen, or the input cursor when empty
}
