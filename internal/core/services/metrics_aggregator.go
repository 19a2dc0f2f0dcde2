package services

import (
	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// MetricsAggregatorConfig sets the minimum sample sizes for the breakdown.
type MetricsAggregatorConfig struct {
	CategoryMinVolume    int
	SubcategoryMinVolume int
}

// MetricsAggregator computes operational metrics for one agent at a time.
// It is pure CPU work and holds no mutable state.
type MetricsAggregator struct {
	detector       ports.EscalationDetector
	categoryMin    int
	subcategoryMin int
}

// NewMetricsAggregator creates a new aggregator.
func NewMetricsAggregator(detector ports.EscalationDetector, cfg MetricsAggregatorConfig) *MetricsAggregator {
	if cfg.CategoryMinVolume <= 0 {
		cfg.CategoryMinVolume = domain.DefaultCategoryMinVolume
	}
	if cfg.SubcategoryMinVolume <= 0 {
		cfg.SubcategoryMinVolume = domain.DefaultSubcategoryMinVolume
	}
	return &MetricsAggregator{
		detector:       detector,
		categoryMin:    cfg.CategoryMinVolume,
		subcategoryMin: cfg.SubcategoryMinVolume,
	}
}

// groupStats accumulates the counters shared by the overall metrics and
// every taxonomy group.
type groupStats struct {
	category        string
	subcategory     string
	volume          int
	closed          int
	fcr             int
	reopened        int
	escalated       int
	resolutionHours []float64
}

func (g *groupStats) add(c domain.Conversation, escalated bool) {
	g.volume++
	if escalated {
		g.escalated++
	}
	if c.IsClosed() {
		g.closed++
		if c.IsReopened() {
			g.reopened++
		} else {
			g.fcr++
		}
	}
	if hours, ok := c.ResolutionHours(); ok {
		g.resolutionHours = append(g.resolutionHours, hours)
	}
}

func (g *groupStats) fcrRate() float64        { return rate(g.fcr, g.closed) }
func (g *groupStats) reopenRate() float64     { return rate(g.reopened, g.closed) }
func (g *groupStats) escalationRate() float64 { return rate(g.escalated, g.volume) }

func (g *groupStats) performance() domain.CategoryPerformance {
	fcr := g.fcrRate()
	esc := g.escalationRate()
	return domain.CategoryPerformance{
		Category:              g.category,
		Subcategory:           g.subcategory,
		Volume:                g.volume,
		FCRRate:               fcr,
		EscalationRate:        esc,
		MedianResolutionHours: median(g.resolutionHours),
		PerformanceLevel:      domain.ClassifyPerformance(g.volume, fcr, esc),
	}
}

// IsEscalated exposes the configured escalation predicate.
func (a *MetricsAggregator) IsEscalated(c domain.Conversation) bool {
	return a.detector.IsEscalated(c)
}

// ComputeMetrics builds the metrics for one agent. Ranks and coaching
// fields are left for the classifier. An empty slice yields a zero object.
func (a *MetricsAggregator) ComputeMetrics(identity domain.AgentIdentity, conversations []domain.Conversation) *domain.AgentPerformanceMetrics {
	var (
		overall       groupStats
		responseHours []float64
		ratings       []float64
		csat          = domain.CSATAggregate{Distribution: make(map[int]int)}
		tsScores      []float64
		tsAssessed    int
		tsEscalated   int
		tsPremature   int
		categories    = make(map[string]*groupStats)
		subcategories = make(map[string]*groupStats)
	)

	for _, c := range conversations {
		escalated := a.detector.IsEscalated(c)
		overall.add(c, escalated)

		if hours, ok := c.ResponseHours(); ok {
			responseHours = append(responseHours, hours)
		}

		if c.Rating != nil {
			ratings = append(ratings, float64(*c.Rating))
			csat.Distribution[*c.Rating]++
			if *c.Rating <= 2 {
				csat.NegativeCount++
			}
		}

		if c.Troubleshooting != nil {
			tsAssessed++
			tsScores = append(tsScores, c.Troubleshooting.Score)
			if escalated {
				tsEscalated++
				if c.Troubleshooting.PrematureEscalation {
					tsPremature++
				}
			}
		}

		if c.Category != "" {
			group, ok := categories[c.Category]
			if !ok {
				group = &groupStats{category: c.Category}
				categories[c.Category] = group
			}
			group.add(c, escalated)

			if key := c.SubcategoryKey(); key != "" {
				sub, ok := subcategories[key]
				if !ok {
					sub = &groupStats{category: c.Category, subcategory: c.Subcategory}
					subcategories[key] = sub
				}
				sub.add(c, escalated)
			}
		}
	}

	csat.Count = len(ratings)
	csat.Mean = mean(ratings)

	m := &domain.AgentPerformanceMetrics{
		Identity:              identity,
		TotalConversations:    overall.volume,
		ClosedConversations:   overall.closed,
		FCRRate:               overall.fcrRate(),
		ReopenRate:            overall.reopenRate(),
		EscalationRate:        overall.escalationRate(),
		EscalatedCount:        overall.escalated,
		MedianResolutionHours: median(overall.resolutionHours),
		P90ResolutionHours:    percentile(overall.resolutionHours, 90),
		MedianResponseHours:   median(responseHours),
		ResponseSamples:       len(responseHours),
		CSAT:                  csat,
		Troubleshooting: domain.TroubleshootingAggregate{
			AssessedCount:           tsAssessed,
			AverageScore:            mean(tsScores),
			PrematureEscalations:    tsPremature,
			PrematureEscalationRate: rate(tsPremature, tsEscalated),
		},
		PerformanceByCategory:    make(map[string]domain.CategoryPerformance),
		PerformanceBySubcategory: make(map[string]domain.CategoryPerformance),
		Strengths:                []string{},
		Weaknesses:               []string{},
		CoachingFocusAreas:       []string{},
		PraiseWorthyAchievements: []string{},
	}

	for name, group := range categories {
		if group.volume >= a.categoryMin {
			m.PerformanceByCategory[name] = group.performance()
		}
	}
	for key, group := range subcategories {
		if group.volume >= a.subcategoryMin {
			m.PerformanceBySubcategory[key] = group.performance()
		}
	}

	return m
}
