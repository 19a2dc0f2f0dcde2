package domain

import (
	"strings"
	"time"
)

// Conversation states reported by the support platform.
const (
	ConversationOpen    = "open"
	ConversationClosed  = "closed"
	ConversationSnoozed = "snoozed"
)

// TroubleshootingAssessment is an upstream quality judgement of one conversation.
type TroubleshootingAssessment struct {
	Score               float64 `json:"score"`
	PrematureEscalation bool    `json:"premature_escalation"`
}

// Conversation is an immutable support conversation record.
// Timestamps are normalized to UTC at the ingestion boundary and may be nil
// when the source omitted them.
type Conversation struct {
	ID              string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
	State           string
	AssigneeID      string
	AssigneeEmail   string
	ReopenedCount   int
	Rating          *int
	ResponseLatency *time.Duration
	PartCount       int
	FullText        string
	Category        string
	Subcategory     string
	Tags            []string
	Topics          []string
	Escalated       *bool
	Troubleshooting *TroubleshootingAssessment
}

// IsClosed reports whether the conversation is in the closed state.
func (c Conversation) IsClosed() bool {
	return strings.EqualFold(c.State, ConversationClosed)
}

// IsFirstContactResolution reports a closed conversation that was never reopened.
func (c Conversation) IsFirstContactResolution() bool {
	return c.IsClosed() && c.ReopenedCount == 0
}

// IsReopened reports whether the conversation was reopened at least once.
func (c Conversation) IsReopened() bool {
	return c.ReopenedCount > 0
}

// ResolutionHours returns updated_at − created_at in hours for closed
// conversations with both timestamps present.
func (c Conversation) ResolutionHours() (float64, bool) {
	if !c.IsClosed() || c.CreatedAt == nil || c.UpdatedAt == nil {
		return 0, false
	}
	d := c.UpdatedAt.Sub(*c.CreatedAt)
	if d < 0 {
		return 0, false
	}
	return d.Hours(), true
}

// ResponseHours returns the first-response latency in hours.
func (c Conversation) ResponseHours() (float64, bool) {
	if c.ResponseLatency == nil || *c.ResponseLatency < 0 {
		return 0, false
	}
	return c.ResponseLatency.Hours(), true
}

// SubcategoryKey returns "category>subcategory", or "" when either is missing.
func (c Conversation) SubcategoryKey() string {
	if c.Category == "" || c.Subcategory == "" {
		return ""
	}
	return SubcategoryKey(c.Category, c.Subcategory)
}

// WithTaxonomy returns a copy labelled with the given category and subcategory.
func (c Conversation) WithTaxonomy(category, subcategory string) Conversation {
	c.Category = category
	c.Subcategory = subcategory
	return c
}

// SubcategoryKey joins a category and subcategory into a breakdown key.
func SubcategoryKey(category, subcategory string) string {
	return category + ">" + subcategory
}

// NormalizeRating drops ratings outside the 1–5 star range.
func NormalizeRating(rating *int) *int {
	if rating == nil || *rating < 1 || *rating > 5 {
		return nil
	}
	v := *rating
	return &v
}

// TaxonomyMatch is a single classification result.
type TaxonomyMatch struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence"`
}
