// Package cursor tracks which mentions the bot has already handled.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// Policy selects which mentions of a batch are acted upon.
type Policy string

const (
	// PolicyNewest acts on the single most recent unseen reply mention.
	PolicyNewest Policy = "newest"
	// PolicyAll acts on every unseen reply mention, oldest first.
	PolicyAll Policy = "all"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyNewest, PolicyAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", s)
	}
}

// Cursor is the bookmark of the most recently processed mention for one bot.
// The in-memory value moves on Advance; Commit persists it.
type Cursor struct {
	botID  string
	store  storage.CursorStore
	logger *log.Logger

	mu        sync.Mutex
	value     domain.Cursor
	committed domain.Cursor
}

// Options configures Cursor.
type Options struct {
	Logger *log.Logger
}

// New creates a cursor for botID backed by store.
func New(botID string, store storage.CursorStore, opts Options) *Cursor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Cursor{botID: botID, store: store, logger: logger}
}

// BotID returns the identity the cursor is keyed by.
func (c *Cursor) BotID() string {
	return c.botID
}

// Load restores the persisted value. A missing record leaves the cursor empty.
func (c *Cursor) Load(ctx context.Context) error {
	v, err := c.store.GetCursor(ctx, c.botID)
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Printf("no stored cursor for bot %s, starting from the mention window", c.botID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.committed = v
	c.logger.Printf("resuming bot %s after mention %s", c.botID, v)
	return nil
}

// Value returns the current in-memory cursor.
func (c *Cursor) Value() domain.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Select returns the mentions to act on under policy.
// Mentions at or below the cursor and mentions that are not replies are skipped.
func (c *Cursor) Select(mentions []domain.Mention, policy Policy) []domain.Mention {
	return Select(mentions, c.Value(), policy)
}

// Advance moves the cursor to the newest id in mentions. It never moves backwards.
func (c *Cursor) Advance(mentions []domain.Mention) {
	newest := Newest(mentions)
	if newest == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value.IsZero() || CompareIDs(newest, c.value.String()) > 0 {
		c.value = domain.Cursor(newest)
	}
}

// Commit persists the current value if it changed since the last commit.
func (c *Cursor) Commit(ctx context.Context) error {
	c.mu.Lock()
	value, committed := c.value, c.committed
	c.mu.Unlock()

	if value.IsZero() || value == committed {
		return nil
	}
	if err := c.store.SetCursor(ctx, c.botID, value); err != nil {
		return fmt.Errorf("commit cursor: %w", err)
	}

	c.mu.Lock()
	c.committed = value
	c.mu.Unlock()
	return nil
}

// Select filters mentions newer than cursor that reply to a post.
// PolicyNewest yields at most one mention; PolicyAll yields all, oldest first.
func Select(mentions []domain.Mention, cursor domain.Cursor, policy Policy) []domain.Mention {
	var unseen []domain.Mention
	for _, m := range mentions {
		if !m.IsReply() {
			continue
		}
		if !cursor.IsZero() && CompareIDs(m.ID, cursor.String()) <= 0 {
			continue
		}
		unseen = append(unseen, m)
	}
	if len(unseen) == 0 {
		return nil
	}

	sort.SliceStable(unseen, func(i, j int) bool {
		return CompareIDs(unseen[i].ID, unseen[j].ID) < 0
	})

	if policy == PolicyAll {
		return unseen
	}
	return unseen[len(unseen)-1:]
}

// Newest returns the greatest mention id, or "" for an empty batch.
func Newest(mentions []domain.Mention) string {
	var newest string
	for _, m := range mentions {
		if newest == "" || CompareIDs(m.ID, newest) > 0 {
			newest = m.ID
		}
	}
	return newest
}

// OlderThan returns the mentions with ids below id.
func OlderThan(mentions []domain.Mention, id string) []domain.Mention {
	var out []domain.Mention
	for _, m := range mentions {
		if CompareIDs(m.ID, id) < 0 {
			out = append(out, m)
		}
	}
	return out
}

// CompareIDs orders decimal snowflake ids numerically.
func CompareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
