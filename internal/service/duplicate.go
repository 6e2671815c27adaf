package service

import (
	"context"

	"github.com/capitalize-ai/event-tracker/internal/model"
)

// BusinessKeyFinder looks up message details by their natural key.
type BusinessKeyFinder interface {
	FindByMessageIDConversationIDAndCpaID(ctx context.Context, messageID, conversationID, cpaID string) ([]model.MessageDetailView, error)
}

// DuplicateChecker reports whether a message has been seen before. It detects
// duplicates; it does not prevent them, and a concurrent check-then-insert can race.
type DuplicateChecker struct {
	details BusinessKeyFinder
}

// NewDuplicateChecker creates a duplicate checker.
func NewDuplicateChecker(details BusinessKeyFinder) *DuplicateChecker {
	return &DuplicateChecker{details: details}
}

// IsDuplicate reports whether at least one stored message detail matches all three fields exactly.
func (c *DuplicateChecker) IsDuplicate(ctx context.Context, messageID, conversationID, cpaID string) (bool, error) {
	rows, err := c.details.FindByMessageIDConversationIDAndCpaID(ctx, messageID, conversationID, cpaID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
