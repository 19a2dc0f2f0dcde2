package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
)

const (
	// teamPatternShare is the share of agents that must list a category for
	// it to count as a team-wide strength or weakness.
	teamPatternShare = 0.30
	// quartileMinAgents is the smallest team for which quartiles are meaningful.
	quartileMinAgents = 4
)

// VendorReportBuilder rolls classified agent metrics into a team report.
type VendorReportBuilder struct {
	now func() time.Time
}

// NewVendorReportBuilder creates a new report builder.
func NewVendorReportBuilder() *VendorReportBuilder {
	return &VendorReportBuilder{now: func() time.Time { return time.Now().UTC() }}
}

// Build assembles the report. Agents must already be ranked and classified.
func (b *VendorReportBuilder) Build(vendor string, periodStart, periodEnd time.Time, agents []*domain.AgentPerformanceMetrics) (*domain.VendorPerformanceReport, error) {
	if len(agents) == 0 {
		return nil, apperrors.ErrNoAgentsFound
	}

	return &domain.VendorPerformanceReport{
		Vendor:                vendor,
		PeriodStart:           periodStart.UTC(),
		PeriodEnd:             periodEnd.UTC(),
		GeneratedAt:           b.now(),
		Agents:                agents,
		TeamMetrics:           teamMetrics(agents),
		AgentsNeedingCoaching: agentsNeedingCoaching(agents),
		AgentsForPraise:       agentsForPraise(agents),
		TeamStrengths:         teamPatterns(agents, func(m *domain.AgentPerformanceMetrics) []string { return m.Strengths }),
		TeamWeaknesses:        teamPatterns(agents, func(m *domain.AgentPerformanceMetrics) []string { return m.Weaknesses }),
	}, nil
}

// teamMetrics weights every rate by the agent's conversation volume; CSAT
// is weighted by rating count instead.
func teamMetrics(agents []*domain.AgentPerformanceMetrics) domain.TeamMetrics {
	team := domain.TeamMetrics{TotalAgents: len(agents)}

	var fcr, reopen, esc, resolution, response, csat float64
	for _, m := range agents {
		w := float64(m.TotalConversations)
		team.TotalConversations += m.TotalConversations
		fcr += m.FCRRate * w
		reopen += m.ReopenRate * w
		esc += m.EscalationRate * w
		resolution += m.MedianResolutionHours * w
		response += m.MedianResponseHours * w

		csat += m.CSAT.Mean * float64(m.CSAT.Count)
		team.CSATCount += m.CSAT.Count
		team.NegativeCSATCount += m.CSAT.NegativeCount
	}

	if total := float64(team.TotalConversations); total > 0 {
		team.FCRRate = fcr / total
		team.ReopenRate = reopen / total
		team.EscalationRate = esc / total
		team.MedianResolutionHours = resolution / total
		team.MedianResponseHours = response / total
	}
	if team.CSATCount > 0 {
		team.CSATScore = csat / float64(team.CSATCount)
	}
	return team
}

// agentsNeedingCoaching lists the bottom FCR quartile plus every agent
// with high coaching priority, in FCR rank order.
func agentsNeedingCoaching(agents []*domain.AgentPerformanceMetrics) []string {
	n := len(agents)
	q := n / 4
	return selectByRank(agents, func(m *domain.AgentPerformanceMetrics) bool {
		if n >= quartileMinAgents && m.FCRRank > n-q {
			return true
		}
		return m.CoachingPriority == domain.CoachingHigh
	})
}

// agentsForPraise lists the top FCR quartile plus every agent at or above
// the praise FCR threshold, in FCR rank order.
func agentsForPraise(agents []*domain.AgentPerformanceMetrics) []string {
	n := len(agents)
	q := n / 4
	return selectByRank(agents, func(m *domain.AgentPerformanceMetrics) bool {
		if n >= quartileMinAgents && m.FCRRank <= q {
			return true
		}
		return m.ClosedConversations > 0 && m.FCRRate >= praiseFCRRate
	})
}

func selectByRank(agents []*domain.AgentPerformanceMetrics, keep func(*domain.AgentPerformanceMetrics) bool) []string {
	ranked := slices.Clone(agents)
	slices.SortStableFunc(ranked, func(a, b *domain.AgentPerformanceMetrics) int {
		return cmp.Compare(a.FCRRank, b.FCRRank)
	})

	ids := []string{}
	for _, m := range ranked {
		if keep(m) {
			ids = append(ids, m.AgentID())
		}
	}
	return ids
}

// teamPatterns returns the categories listed by at least teamPatternShare
// of agents, most frequent first.
func teamPatterns(agents []*domain.AgentPerformanceMetrics, list func(*domain.AgentPerformanceMetrics) []string) []string {
	counts := make(map[string]int)
	for _, m := range agents {
		for _, name := range list(m) {
			counts[name]++
		}
	}

	patterns := []string{}
	for name, count := range counts {
		if float64(count)/float64(len(agents)) >= teamPatternShare {
			patterns = append(patterns, name)
		}
	}
	slices.SortFunc(patterns, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return patterns
}
