package http

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

// FlexTime accepts epoch seconds (number or numeric string) or an RFC3339
// string. null, "" and anything unparseable decode to the zero value, so a
// bad timestamp drops out of time statistics without rejecting the batch.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		t.setEpoch(string(data))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t.setEpoch(s) {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed.UTC()
	}
	return nil
}

func (t *FlexTime) setEpoch(raw string) bool {
	secs, ok := parseFiniteFloat(raw)
	if !ok {
		return false
	}
	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
	return true
}

func parseFiniteFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FlexNumber accepts a JSON number or numeric string. Any other value
// decodes as absent.
type FlexNumber struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	n.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}
	if v, ok := parseFiniteFloat(raw); ok {
		n.Value = &v
	}
	return nil
}

// ptr returns nil for the zero time.
func (t FlexTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

// FlexString accepts a JSON string or number. Admin ids arrive as both.
// Other values decode as "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Neither string nor number; treated as missing
		*s = ""
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

// TroubleshootingDTO is the upstream quality assessment of a conversation
type TroubleshootingDTO struct {
	Score               float64 `json:"score"`
	PrematureEscalation bool    `json:"premature_escalation"`
}

// ConversationDTO is one conversation as supplied by the caller
type ConversationDTO struct {
	ID                   FlexString          `json:"id"`
	CreatedAt            FlexTime            `json:"created_at"`
	UpdatedAt            FlexTime            `json:"updated_at"`
	State                string              `json:"state"`
	AssigneeID           FlexString          `json:"assignee_id"`
	AssigneeEmail        string              `json:"assignee_email"`
	ReopenedCount        int                 `json:"reopened_count"`
	Rating               FlexNumber          `json:"rating"`
	FirstResponseSeconds FlexNumber          `json:"first_response_seconds"`
	PartCount            int                 `json:"part_count"`
	FullText             string              `json:"full_text"`
	Category             string              `json:"category"`
	Subcategory          string              `json:"subcategory"`
	Tags                 []string            `json:"tags"`
	Topics               []string            `json:"topics"`
	Escalated            *bool               `json:"escalated"`
	Troubleshooting      *TroubleshootingDTO `json:"troubleshooting"`
}

// ToDomain normalizes the DTO at the ingestion boundary: timestamps become
// UTC, ratings outside 1-5 and negative latencies are dropped.
func (c ConversationDTO) ToDomain() domain.Conversation {
	conv := domain.Conversation{
		ID:            string(c.ID),
		CreatedAt:     c.CreatedAt.ptr(),
		UpdatedAt:     c.UpdatedAt.ptr(),
		State:         strings.ToLower(strings.TrimSpace(c.State)),
		AssigneeID:    string(c.AssigneeID),
		AssigneeEmail: strings.TrimSpace(c.AssigneeEmail),
		ReopenedCount: max(c.ReopenedCount, 0),
		Rating:        normalizeRating(c.Rating),
		PartCount:     c.PartCount,
		FullText:      c.FullText,
		Category:      strings.TrimSpace(c.Category),
		Subcategory:   strings.TrimSpace(c.Subcategory),
		Tags:          c.Tags,
		Topics:        c.Topics,
		Escalated:     c.Escalated,
	}

	if secs := c.FirstResponseSeconds.Value; secs != nil && *secs >= 0 {
		latency := time.Duration(*secs * float64(time.Second))
		conv.ResponseLatency = &latency
	}

	if c.Troubleshooting != nil {
		conv.Troubleshooting = &domain.TroubleshootingAssessment{
			Score:               c.Troubleshooting.Score,
			PrematureEscalation: c.Troubleshooting.PrematureEscalation,
		}
	}

	return conv
}

func normalizeRating(rating FlexNumber) *int {
	r := rating.Value
	if r == nil || *r != math.Trunc(*r) || *r < 1 || *r > 5 {
		return nil
	}
	v := int(*r)
	return domain.NormalizeRating(&v)
}

func toDomainConversations(dtos []ConversationDTO) []domain.Conversation {
	conversations := make([]domain.Conversation, 0, len(dtos))
	for _, dto := range dtos {
		conversations = append(conversations, dto.ToDomain())
	}
	return conversations
}
