package services

import (
	"strings"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// DefaultEscalationMarkers are phrases that show a senior staff member
// joined the conversation.
var DefaultEscalationMarkers = []string{
	"escalated to tier 2",
	"escalating to our senior",
	"senior support engineer",
	"looping in engineering",
}

// TextEscalationDetector flags conversations whose text contains any marker.
type TextEscalationDetector struct {
	markers []string
}

var _ ports.EscalationDetector = (*TextEscalationDetector)(nil)

// NewTextEscalationDetector creates a detector matching markers case-insensitively.
func NewTextEscalationDetector(markers []string) *TextEscalationDetector {
	normalized := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			normalized = append(normalized, m)
		}
	}
	return &TextEscalationDetector{markers: normalized}
}

// IsEscalated implements ports.EscalationDetector.
func (d *TextEscalationDetector) IsEscalated(c domain.Conversation) bool {
	if c.FullText == "" {
		return false
	}
	text := strings.ToLower(c.FullText)
	for _, marker := range d.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// StructuredEscalationDetector reads the explicit escalation flag.
type StructuredEscalationDetector struct{}

var _ ports.EscalationDetector = StructuredEscalationDetector{}

// IsEscalated implements ports.EscalationDetector.
func (StructuredEscalationDetector) IsEscalated(c domain.Conversation) bool {
	return c.Escalated != nil && *c.Escalated
}

// CompositeEscalationDetector prefers the structured flag when the record
// carries one and falls back to the text heuristic otherwise.
type CompositeEscalationDetector struct {
	text ports.EscalationDetector
}

var _ ports.EscalationDetector = (*CompositeEscalationDetector)(nil)

// NewCompositeEscalationDetector wraps a text detector.
func NewCompositeEscalationDetector(text ports.EscalationDetector) *CompositeEscalationDetector {
	return &CompositeEscalationDetector{text: text}
}

// IsEscalated implements ports.EscalationDetector.
func (d *CompositeEscalationDetector) IsEscalated(c domain.Conversation) bool {
	if c.Escalated != nil {
		return *c.Escalated
	}
	return d.text.IsEscalated(c)
}
