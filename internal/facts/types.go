package facts

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// UserFact is one durable fact about a specific user. Facts are immutable
// once stored; there is no edit or delete path.
type UserFact struct {
	Content   string    `json:"content"`
	StoredBy  string    `json:"stored_by_user_name"`
	CreatedAt time.Time `json:"timestamp"`
}

// BotFact is one durable insight the bot holds about itself.
type BotFact struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Store keeps durable facts about users and about the bot. Additions are
// write-through: the collection is persisted synchronously on every commit.
// A persistence failure is logged and counted but never rolls back the
// in-memory mutation and never reaches the caller; the next successful
// write-through repairs the persisted copy because every save rewrites the
// whole collection.
type Store interface {
	Load(ctx context.Context) error
	AddUserFact(ctx context.Context, userID, displayName, raw string)
	AddBotFact(ctx context.Context, raw string)
	UserFacts(userID string) []UserFact
	BotFacts() []BotFact
	Close() error
}

var bulletPrefix = regexp.MustCompile(`^\* |^- |^• `)

// Normalize strips one leading bullet marker and surrounding whitespace.
// Nothing else is touched.
func Normalize(raw string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(raw, ""))
}
