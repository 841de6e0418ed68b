// Package notify tells the outside world about launched tokens.
package notify

import (
	"context"
	"fmt"
	"log"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/social"
)

// NotifyError is returned when a reply could not be posted.
// Callers log it; a deployed token is never rolled back.
type NotifyError struct {
	MentionID string
	Err       error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("reply to mention %s: %v", e.MentionID, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Replier posts replies on the social platform.
type Replier interface {
	Reply(ctx context.Context, parentID, text string) (string, error)
}

// ReplyPublisher announces a launch as a reply to the triggering mention.
type ReplyPublisher struct {
	replier Replier
	logger  *log.Logger
}

// NewReplyPublisher creates a publisher posting through replier.
func NewReplyPublisher(replier Replier, logger *log.Logger) *ReplyPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &ReplyPublisher{replier: replier, logger: logger}
}

var _ Replier = (social.Client)(nil)

// FormatReply renders the launch announcement.
func FormatReply(name, symbol, address string) string {
	return fmt.Sprintf("🚀 Your token is live!\n\n💎 Name: %s\n💫 Symbol: %s\n🔗 Address: %s\n\nLFG! 🚀",
		name, symbol, address)
}

// Reply posts text under mentionID.
func (p *ReplyPublisher) Reply(ctx context.Context, mentionID, text string) error {
	id, err := p.replier.Reply(ctx, mentionID, text)
	if err != nil {
		return &NotifyError{MentionID: mentionID, Err: err}
	}
	p.logger.Printf("replied to mention %s (reply %s)", mentionID, id)
	return nil
}

// AnnounceLaunch replies to the mention that triggered l.
func (p *ReplyPublisher) AnnounceLaunch(ctx context.Context, l *domain.Launch) error {
	return p.Reply(ctx, l.MentionID, FormatReply(l.TokenName, l.TokenSymbol, l.TokenAddress))
}
