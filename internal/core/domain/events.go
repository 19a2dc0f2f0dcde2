package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventReportCompleted EventType = "REPORT_COMPLETED"
	EventSnapshotStored  EventType = "SNAPSHOT_STORED"
	EventPong            EventType = "PONG"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	Vendor  string    `json:"vendor"` // Used for routing to vendor rooms
}

// ReportCompletedPayload summarizes a finished analysis run.
type ReportCompletedPayload struct {
	RunID                 string   `json:"run_id"`
	WeekStart             string   `json:"week_start"`
	TotalAgents           int      `json:"total_agents"`
	TotalConversations    int      `json:"total_conversations"`
	TeamFCRRate           float64  `json:"team_fcr_rate"`
	AgentsNeedingCoaching []string `json:"agents_needing_coaching"`
}

// SnapshotStoredPayload announces a persisted week.
type SnapshotStoredPayload struct {
	WeekStart string `json:"week_start"`
	Rows      int    `json:"rows"`
}
