package domain

import "time"

// SystemMetrics is one immutable aggregation snapshot. Rates are events per
// minute over the configured trailing window; leave and disconnect rates are
// computed from disjoint event subsets.
type SystemMetrics struct {
	Timestamp          time.Time `json:"timestamp"`
	ActiveRooms        int       `json:"active_rooms"`
	TotalParticipants  int       `json:"total_participants"`
	JoinRate           float64   `json:"join_rate"`
	LeaveRate          float64   `json:"leave_rate"`
	DisconnectRate     float64   `json:"disconnect_rate"`
	AvgRoomDurationSec float64   `json:"avg_room_duration_seconds"`
	AvgQuality         float64   `json:"avg_connection_quality"`
}

// MetricsSnapshot bundles the pieces the dashboard needs in one response.
type MetricsSnapshot struct {
	Current SystemMetrics   `json:"current"`
	History []SystemMetrics `json:"history"`
	Rooms   []Room          `json:"rooms"`
}
