package services_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

var baseTime = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

// closedConv returns a closed conversation resolved after hours.
func closedConv(id, assignee string, hours float64) domain.Conversation {
	created := baseTime
	updated := created.Add(time.Duration(hours * float64(time.Hour)))
	return domain.Conversation{
		ID:         id,
		CreatedAt:  &created,
		UpdatedAt:  &updated,
		State:      domain.ConversationClosed,
		AssigneeID: assignee,
	}
}

func reopened(c domain.Conversation, times int) domain.Conversation {
	c.ReopenedCount = times
	return c
}

func escalated(c domain.Conversation) domain.Conversation {
	c.Escalated = ptr(true)
	return c
}

func rated(c domain.Conversation, stars int) domain.Conversation {
	c.Rating = ptr(stars)
	return c
}

func categorized(c domain.Conversation, category, subcategory string) domain.Conversation {
	return c.WithTaxonomy(category, subcategory)
}
