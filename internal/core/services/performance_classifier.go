package services

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// Coaching thresholds.
const (
	coachingFCRFloor            = 0.70
	coachingEscalationCeiling   = 0.20
	coachingMinCSATSamples      = 5
	coachingHighCSATFloor       = 3.5
	coachingMediumCSATFloor     = 4.0
	coachingNegativeCSATLimit   = 3
	coachingHighPrematureRate   = 0.40
	coachingMediumPrematureRate = 0.25
	coachingHighTSFloor         = 0.40
	coachingMediumTSFloor       = 0.60
	coachingWeakCategoryLimit   = 2
	coachingWeakSubcatLimit     = 3
)

// Praise thresholds.
const (
	praiseFCRRate          = 0.90
	praiseCSATScore        = 4.5
	praiseMinZeroEscVolume = 10
)

const (
	maxBestExamples      = 3
	maxCoachingExamples  = 3
	maxWorstCSATExamples = 5
)

// PerformanceClassifier ranks agents and decides who needs coaching.
type PerformanceClassifier struct {
	detector ports.EscalationDetector
}

// NewPerformanceClassifier creates a classifier using detector for example selection.
func NewPerformanceClassifier(detector ports.EscalationDetector) *PerformanceClassifier {
	return &PerformanceClassifier{detector: detector}
}

// Classify runs the second pass over fully computed agents: ranks,
// strengths and weaknesses, coaching priority, focus areas and examples.
// conversations is keyed by agent id.
func (c *PerformanceClassifier) Classify(agents []*domain.AgentPerformanceMetrics, conversations map[string][]domain.Conversation) {
	c.Rank(agents)
	for _, m := range agents {
		c.DeriveStrengthsAndWeaknesses(m)
		m.CoachingPriority = c.CoachingPriority(m)
		m.CoachingFocusAreas = c.FocusAreas(m)
		m.PraiseWorthyAchievements = c.Achievements(m)
		m.Examples = c.SelectExamples(conversations[m.AgentID()])
	}
}

// Rank fills FCRRank (FCR descending) and ResponseTimeRank (median
// response ascending). Both sorts are stable so ties keep input order.
// Agents without any response samples rank after those with samples.
func (c *PerformanceClassifier) Rank(agents []*domain.AgentPerformanceMetrics) {
	byFCR := slices.Clone(agents)
	slices.SortStableFunc(byFCR, func(a, b *domain.AgentPerformanceMetrics) int {
		return cmp.Compare(b.FCRRate, a.FCRRate)
	})
	for i, m := range byFCR {
		m.FCRRank = i + 1
	}

	byResponse := slices.Clone(agents)
	slices.SortStableFunc(byResponse, func(a, b *domain.AgentPerformanceMetrics) int {
		aHas, bHas := a.ResponseSamples > 0, b.ResponseSamples > 0
		if aHas != bHas {
			if aHas {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.MedianResponseHours, b.MedianResponseHours)
	})
	for i, m := range byResponse {
		m.ResponseTimeRank = i + 1
	}
}

// DeriveStrengthsAndWeaknesses lists excellent/good categories as strengths
// and poor categories as weaknesses. Fair categories are neutral.
func (c *PerformanceClassifier) DeriveStrengthsAndWeaknesses(m *domain.AgentPerformanceMetrics) {
	strengths := []string{}
	weaknesses := []string{}
	for name, perf := range m.PerformanceByCategory {
		switch {
		case perf.PerformanceLevel.IsStrength():
			strengths = append(strengths, name)
		case perf.PerformanceLevel.IsWeakness():
			weaknesses = append(weaknesses, name)
		}
	}
	sort.Strings(strengths)
	sort.Strings(weaknesses)
	m.Strengths = strengths
	m.Weaknesses = weaknesses
}

// CoachingPriority applies the ordered rules; the first matching tier wins
// so a single severe signal is never averaged away by good aggregates.
func (c *PerformanceClassifier) CoachingPriority(m *domain.AgentPerformanceMetrics) domain.CoachingPriority {
	if m.TotalConversations == 0 {
		return domain.CoachingLow
	}

	ts := m.Troubleshooting
	assessed := ts.AssessedCount > 0
	csatReliable := m.CSAT.Count >= coachingMinCSATSamples

	switch {
	case m.FCRRate < coachingFCRFloor,
		m.EscalationRate > coachingEscalationCeiling,
		csatReliable && m.CSAT.Mean < coachingHighCSATFloor,
		m.CSAT.NegativeCount >= coachingNegativeCSATLimit,
		assessed && ts.PrematureEscalationRate > coachingHighPrematureRate,
		assessed && ts.AverageScore < coachingHighTSFloor:
		return domain.CoachingHigh
	}

	weakCategories := 0
	for _, perf := range m.PerformanceByCategory {
		if perf.PerformanceLevel.IsWeakness() {
			weakCategories++
		}
	}

	switch {
	case weakCategories >= coachingWeakCategoryLimit,
		m.WeakSubcategoryCount() >= coachingWeakSubcatLimit,
		csatReliable && m.CSAT.Mean < coachingMediumCSATFloor,
		assessed && ts.PrematureEscalationRate > coachingMediumPrematureRate,
		assessed && ts.AverageScore < coachingMediumTSFloor:
		return domain.CoachingMedium
	}

	return domain.CoachingLow
}

// FocusAreas lists the concrete signals behind a coaching recommendation.
func (c *PerformanceClassifier) FocusAreas(m *domain.AgentPerformanceMetrics) []string {
	areas := []string{}
	if m.TotalConversations == 0 {
		return areas
	}

	if m.FCRRate < coachingFCRFloor {
		areas = append(areas, fmt.Sprintf("First contact resolution at %s (target %s)", pct(m.FCRRate), pct(coachingFCRFloor)))
	}
	if m.EscalationRate > coachingEscalationCeiling {
		areas = append(areas, fmt.Sprintf("Escalation rate at %s (ceiling %s)", pct(m.EscalationRate), pct(coachingEscalationCeiling)))
	}
	if m.CSAT.Count >= coachingMinCSATSamples && m.CSAT.Mean < coachingMediumCSATFloor {
		areas = append(areas, fmt.Sprintf("CSAT average %.2f across %d ratings", m.CSAT.Mean, m.CSAT.Count))
	}
	if m.CSAT.NegativeCount >= coachingNegativeCSATLimit {
		areas = append(areas, fmt.Sprintf("%d negative CSAT ratings", m.CSAT.NegativeCount))
	}
	if ts := m.Troubleshooting; ts.AssessedCount > 0 {
		if ts.PrematureEscalationRate > coachingMediumPrematureRate {
			areas = append(areas, fmt.Sprintf("Premature escalations at %s of escalated conversations", pct(ts.PrematureEscalationRate)))
		}
		if ts.AverageScore < coachingMediumTSFloor {
			areas = append(areas, fmt.Sprintf("Troubleshooting score %.2f", ts.AverageScore))
		}
	}
	for _, name := range m.Weaknesses {
		perf := m.PerformanceByCategory[name]
		areas = append(areas, fmt.Sprintf("%s: FCR %s, escalation %s over %d conversations",
			name, pct(perf.FCRRate), pct(perf.EscalationRate), perf.Volume))
	}
	return areas
}

// Achievements lists praise-worthy results.
func (c *PerformanceClassifier) Achievements(m *domain.AgentPerformanceMetrics) []string {
	achievements := []string{}
	if m.TotalConversations == 0 {
		return achievements
	}

	if m.ClosedConversations > 0 && m.FCRRate >= praiseFCRRate {
		achievements = append(achievements, fmt.Sprintf("First contact resolution of %s", pct(m.FCRRate)))
	}
	if m.CSAT.Count >= coachingMinCSATSamples && m.CSAT.Mean >= praiseCSATScore {
		achievements = append(achievements, fmt.Sprintf("CSAT average %.2f across %d ratings", m.CSAT.Mean, m.CSAT.Count))
	}
	if m.EscalatedCount == 0 && m.TotalConversations >= praiseMinZeroEscVolume {
		achievements = append(achievements, fmt.Sprintf("No escalations across %d conversations", m.TotalConversations))
	}
	for _, name := range m.Strengths {
		if m.PerformanceByCategory[name].PerformanceLevel == domain.LevelExcellent {
			achievements = append(achievements, "Excellent performance in "+name)
		}
	}
	return achievements
}

// SelectExamples picks conversations worth reviewing with the agent.
func (c *PerformanceClassifier) SelectExamples(conversations []domain.Conversation) domain.AgentExamples {
	type candidate struct {
		conv      domain.Conversation
		escalated bool
		hours     float64
		hasHours  bool
	}

	var best, reopened, escalated, negative []candidate
	for _, conv := range conversations {
		hours, hasHours := conv.ResolutionHours()
		cand := candidate{conv: conv, escalated: c.detector.IsEscalated(conv), hours: hours, hasHours: hasHours}

		if conv.IsFirstContactResolution() && !cand.escalated && hasHours {
			best = append(best, cand)
		}
		switch {
		case conv.IsReopened():
			reopened = append(reopened, cand)
		case cand.escalated:
			escalated = append(escalated, cand)
		}
		if conv.Rating != nil && *conv.Rating <= 2 {
			negative = append(negative, cand)
		}
	}

	slices.SortStableFunc(best, func(a, b candidate) int { return cmp.Compare(a.hours, b.hours) })
	slices.SortStableFunc(reopened, func(a, b candidate) int { return cmp.Compare(b.conv.ReopenedCount, a.conv.ReopenedCount) })
	slices.SortStableFunc(negative, func(a, b candidate) int { return cmp.Compare(*a.conv.Rating, *b.conv.Rating) })

	toExample := func(cand candidate, reason string) domain.ExampleConversation {
		ex := domain.ExampleConversation{
			ConversationID: cand.conv.ID,
			Reason:         reason,
			Rating:         cand.conv.Rating,
			Reopened:       cand.conv.IsReopened(),
			Escalated:      cand.escalated,
		}
		if cand.hasHours {
			h := cand.hours
			ex.ResolutionHours = &h
		}
		return ex
	}

	examples := domain.AgentExamples{
		Best:      []domain.ExampleConversation{},
		Coaching:  []domain.ExampleConversation{},
		WorstCSAT: []domain.ExampleConversation{},
	}
	for _, cand := range best {
		if len(examples.Best) == maxBestExamples {
			break
		}
		examples.Best = append(examples.Best, toExample(cand, fmt.Sprintf("Resolved on first contact in %.1fh", cand.hours)))
	}
	// Reopened conversations are the stronger negative signal.
	for _, cand := range append(reopened, escalated...) {
		if len(examples.Coaching) == maxCoachingExamples {
			break
		}
		reason := "Escalated to senior staff"
		if cand.conv.IsReopened() {
			reason = fmt.Sprintf("Reopened %d time(s)", cand.conv.ReopenedCount)
		}
		examples.Coaching = append(examples.Coaching, toExample(cand, reason))
	}
	for _, cand := range negative {
		if len(examples.WorstCSAT) == maxWorstCSATExamples {
			break
		}
		examples.WorstCSAT = append(examples.WorstCSAT, toExample(cand, fmt.Sprintf("Rated %d star(s)", *cand.conv.Rating)))
	}
	return examples
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
