package domain

import "time"

// WeekLength is the distance between consecutive snapshot periods.
const WeekLength = 7 * 24 * time.Hour

// SnapshotMetrics is the subset of agent metrics persisted per week.
type SnapshotMetrics struct {
	TotalConversations    int              `json:"total_conversations"`
	FCRRate               float64          `json:"fcr_rate"`
	ReopenRate            float64          `json:"reopen_rate"`
	EscalationRate        float64          `json:"escalation_rate"`
	MedianResolutionHours float64          `json:"median_resolution_hours"`
	MedianResponseHours   float64          `json:"median_response_hours"`
	CSATScore             float64          `json:"csat_score"`
	CSATCount             int              `json:"csat_count"`
	NegativeCSATCount     int              `json:"negative_csat_count"`
	FCRRank               int              `json:"fcr_rank"`
	CoachingPriority      CoachingPriority `json:"coaching_priority"`
}

// WeeklySnapshotRow is keyed by (Vendor, AgentID, WeekStart).
type WeeklySnapshotRow struct {
	Vendor     string    `json:"vendor"`
	AgentID    string    `json:"agent_id"`
	WeekStart  time.Time `json:"week_start"`
	WeekEnd    time.Time `json:"week_end"`
	AgentName  string    `json:"agent_name"`
	AgentEmail string    `json:"agent_email"`
	SnapshotMetrics
}

// NormalizeWeekDate truncates t to a UTC calendar date.
func NormalizeWeekDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PriorWeekStart returns the week start seven days before weekStart.
func PriorWeekStart(weekStart time.Time) time.Time {
	return NormalizeWeekDate(weekStart).AddDate(0, 0, -7)
}

// NewWeeklySnapshotRow projects agent metrics into a persisted row.
func NewWeeklySnapshotRow(vendor string, weekStart, weekEnd time.Time, m *AgentPerformanceMetrics) WeeklySnapshotRow {
	return WeeklySnapshotRow{
		Vendor:     vendor,
		AgentID:    m.AgentID(),
		WeekStart:  NormalizeWeekDate(weekStart),
		WeekEnd:    NormalizeWeekDate(weekEnd),
		AgentName:  m.Identity.DisplayName(),
		AgentEmail: m.Identity.WorkEmail,
		SnapshotMetrics: SnapshotMetrics{
			TotalConversations:    m.TotalConversations,
			FCRRate:               m.FCRRate,
			ReopenRate:            m.ReopenRate,
			EscalationRate:        m.EscalationRate,
			MedianResolutionHours: m.MedianResolutionHours,
			MedianResponseHours:   m.MedianResponseHours,
			CSATScore:             m.CSAT.Mean,
			CSATCount:             m.CSAT.Count,
			NegativeCSATCount:     m.CSAT.NegativeCount,
			FCRRank:               m.FCRRank,
			CoachingPriority:      m.CoachingPriority,
		},
	}
}

// MetricChanges holds current − previous for each numeric metric.
type MetricChanges struct {
	VolumeChange          int     `json:"volume_change"`
	FCRChange             float64 `json:"fcr_change"`
	ReopenChange          float64 `json:"reopen_change"`
	EscalationChange      float64 `json:"escalation_change"`
	ResolutionHoursChange float64 `json:"resolution_hours_change"`
	ResponseHoursChange   float64 `json:"response_hours_change"`
	CSATChange            float64 `json:"csat_change"`
	NegativeCSATChange    int     `json:"negative_csat_change"`
	FCRRankChange         int     `json:"fcr_rank_change"`
}

// WeekOverWeekDelta compares an agent's current week to the prior week.
type WeekOverWeekDelta struct {
	AgentID  string           `json:"agent_id"`
	IsNew    bool             `json:"is_new"`
	Current  SnapshotMetrics  `json:"current"`
	Previous *SnapshotMetrics `json:"previous,omitempty"`
	Changes  *MetricChanges   `json:"changes,omitempty"`
}

// CompareWeeks builds the delta for current against previous. A nil
// previous marks the agent as new with no changes.
func CompareWeeks(current WeeklySnapshotRow, previous *WeeklySnapshotRow) WeekOverWeekDelta {
	delta := WeekOverWeekDelta{
		AgentID: current.AgentID,
		Current: current.SnapshotMetrics,
	}
	if previous == nil {
		delta.IsNew = true
		return delta
	}

	prev := previous.SnapshotMetrics
	cur := current.SnapshotMetrics
	delta.Previous = &prev
	delta.Changes = &MetricChanges{
		VolumeChange:          cur.TotalConversations - prev.TotalConversations,
		FCRChange:             cur.FCRRate - prev.FCRRate,
		ReopenChange:          cur.ReopenRate - prev.ReopenRate,
		EscalationChange:      cur.EscalationRate - prev.EscalationRate,
		ResolutionHoursChange: cur.MedianResolutionHours - prev.MedianResolutionHours,
		ResponseHoursChange:   cur.MedianResponseHours - prev.MedianResponseHours,
		CSATChange:            cur.CSATScore - prev.CSATScore,
		NegativeCSATChange:    cur.NegativeCSATCount - prev.NegativeCSATCount,
		FCRRankChange:         cur.FCRRank - prev.FCRRank,
	}
	return delta
}
