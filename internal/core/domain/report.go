package domain

import "time"

// TeamMetrics are conversation-weighted averages across a vendor's agents.
type TeamMetrics struct {
	TotalAgents           int     `json:"total_agents"`
	TotalConversations    int     `json:"total_conversations"`
	FCRRate               float64 `json:"fcr_rate"`
	ReopenRate            float64 `json:"reopen_rate"`
	EscalationRate        float64 `json:"escalation_rate"`
	MedianResolutionHours float64 `json:"median_resolution_hours"`
	MedianResponseHours   float64 `json:"median_response_hours"`
	CSATScore             float64 `json:"csat_score"`
	CSATCount             int     `json:"csat_count"`
	NegativeCSATCount     int     `json:"negative_csat_count"`
}

// VendorPerformanceReport is the team view for one vendor and period.
type VendorPerformanceReport struct {
	Vendor      string    `json:"vendor"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	GeneratedAt time.Time `json:"generated_at"`

	Agents      []*AgentPerformanceMetrics `json:"agents"`
	TeamMetrics TeamMetrics                `json:"team_metrics"`

	AgentsNeedingCoaching []string `json:"agents_needing_coaching"`
	AgentsForPraise       []string `json:"agents_for_praise"`
	TeamStrengths         []string `json:"team_strengths"`
	TeamWeaknesses        []string `json:"team_weaknesses"`

	UnassignedConversations int `json:"unassigned_conversations"`
	ExcludedAgents          int `json:"excluded_agents"`

	SnapshotStored bool                         `json:"snapshot_stored"`
	WeekOverWeek   map[string]WeekOverWeekDelta `json:"week_over_week,omitempty"`
}

// Agent returns the metrics for agentID, if present.
func (r *VendorPerformanceReport) Agent(agentID string) (*AgentPerformanceMetrics, bool) {
	for _, a := range r.Agents {
		if a.AgentID() == agentID {
			return a, true
		}
	}
	return nil, false
}
