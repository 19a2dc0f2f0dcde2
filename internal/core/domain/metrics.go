package domain

// PerformanceLevel grades a category or subcategory.
type PerformanceLevel string

const (
	LevelExcellent PerformanceLevel = "excellent"
	LevelGood      PerformanceLevel = "good"
	LevelFair      PerformanceLevel = "fair"
	LevelPoor      PerformanceLevel = "poor"
)

// IsStrength reports whether the level counts toward an agent's strengths.
func (l PerformanceLevel) IsStrength() bool {
	return l == LevelExcellent || l == LevelGood
}

// IsWeakness reports whether the level counts toward an agent's weaknesses.
func (l PerformanceLevel) IsWeakness() bool {
	return l == LevelPoor
}

// CoachingPriority is the urgency tier for managerial intervention.
type CoachingPriority string

const (
	CoachingLow    CoachingPriority = "low"
	CoachingMedium CoachingPriority = "medium"
	CoachingHigh   CoachingPriority = "high"
)

// Performance level thresholds, checked in order.
const (
	ExcellentFCRMin        = 0.85
	ExcellentEscalationMax = 0.10
	GoodFCRMin             = 0.75
	GoodEscalationMax      = 0.15
	FairFCRMin             = 0.70
	FairEscalationMax      = 0.20
)

// Default minimum sample sizes for the taxonomy breakdown.
const (
	DefaultCategoryMinVolume    = 3
	DefaultSubcategoryMinVolume = 2
)

// ClassifyPerformance grades a group of conversations. The first matching
// tier wins. A group with no volume has no signal and is graded fair.
func ClassifyPerformance(volume int, fcrRate, escalationRate float64) PerformanceLevel {
	if volume <= 0 {
		return LevelFair
	}
	switch {
	case fcrRate >= ExcellentFCRMin && escalationRate <= ExcellentEscalationMax:
		return LevelExcellent
	case fcrRate >= GoodFCRMin && escalationRate <= GoodEscalationMax:
		return LevelGood
	case fcrRate >= FairFCRMin && escalationRate <= FairEscalationMax:
		return LevelFair
	default:
		return LevelPoor
	}
}

// CategoryPerformance is the breakdown for one taxonomy label.
type CategoryPerformance struct {
	Category              string           `json:"category"`
	Subcategory           string           `json:"subcategory,omitempty"`
	Volume                int              `json:"volume"`
	FCRRate               float64          `json:"fcr_rate"`
	EscalationRate        float64          `json:"escalation_rate"`
	MedianResolutionHours float64          `json:"median_resolution_hours"`
	PerformanceLevel      PerformanceLevel `json:"performance_level"`
}

// CSATAggregate summarizes customer satisfaction ratings.
type CSATAggregate struct {
	Mean          float64     `json:"mean"`
	Count         int         `json:"count"`
	NegativeCount int         `json:"negative_count"`
	Distribution  map[int]int `json:"distribution"`
}

// TroubleshootingAggregate summarizes upstream troubleshooting assessments.
type TroubleshootingAggregate struct {
	AssessedCount           int     `json:"assessed_count"`
	AverageScore            float64 `json:"average_score"`
	PrematureEscalations    int     `json:"premature_escalations"`
	PrematureEscalationRate float64 `json:"premature_escalation_rate"`
}

// ExampleConversation points at a conversation worth reviewing.
type ExampleConversation struct {
	ConversationID  string   `json:"conversation_id"`
	Reason          string   `json:"reason"`
	Rating          *int     `json:"rating,omitempty"`
	ResolutionHours *float64 `json:"resolution_hours,omitempty"`
	Reopened        bool     `json:"reopened"`
	Escalated       bool     `json:"escalated"`
}

// AgentExamples groups the example conversations selected for an agent.
type AgentExamples struct {
	Best      []ExampleConversation `json:"best"`
	Coaching  []ExampleConversation `json:"coaching"`
	WorstCSAT []ExampleConversation `json:"worst_csat"`
}

// AgentPerformanceMetrics is the per-agent result of one analysis run.
// Rank and coaching fields are filled once every agent has been computed.
type AgentPerformanceMetrics struct {
	Identity AgentIdentity `json:"identity"`

	TotalConversations    int     `json:"total_conversations"`
	ClosedConversations   int     `json:"closed_conversations"`
	FCRRate               float64 `json:"fcr_rate"`
	ReopenRate            float64 `json:"reopen_rate"`
	EscalationRate        float64 `json:"escalation_rate"`
	EscalatedCount        int     `json:"escalated_count"`
	MedianResolutionHours float64 `json:"median_resolution_hours"`
	P90ResolutionHours    float64 `json:"p90_resolution_hours"`
	MedianResponseHours   float64 `json:"median_response_hours"`
	ResponseSamples       int     `json:"response_samples"`

	CSAT            CSATAggregate            `json:"csat"`
	Troubleshooting TroubleshootingAggregate `json:"troubleshooting"`

	PerformanceByCategory    map[string]CategoryPerformance `json:"performance_by_category"`
	PerformanceBySubcategory map[string]CategoryPerformance `json:"performance_by_subcategory"`

	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`

	FCRRank          int              `json:"fcr_rank"`
	ResponseTimeRank int              `json:"response_time_rank"`
	CoachingPriority CoachingPriority `json:"coaching_priority"`

	CoachingFocusAreas       []string      `json:"coaching_focus_areas"`
	PraiseWorthyAchievements []string      `json:"praise_worthy_achievements"`
	Examples                 AgentExamples `json:"examples"`
}

// AgentID returns the raw support-platform id of the agent.
func (m *AgentPerformanceMetrics) AgentID() string {
	return m.Identity.RawID
}

// WeakSubcategoryCount counts subcategories graded poor.
func (m *AgentPerformanceMetrics) WeakSubcategoryCount() int {
	count := 0
	for _, perf := range m.PerformanceBySubcategory {
		if perf.PerformanceLevel.IsWeakness() {
			count++
		}
	}
	return count
}
