package api

import "time"

// CursorPosition is a cursor location in canvas coordinates.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceRecord is one active session's liveness document. It is
// created on session start, refreshed by heartbeats and throttled
// cursor moves, deleted on clean shutdown, and reclaimed by the sweep
// when the heartbeat goes stale.
type PresenceRecord struct {
	LastHeartbeat time.Time      `json:"last_heartbeat"`
	UserID        string         `json:"user_id"`
	UserName      string         `json:"user_name"`
	UserColor     string         `json:"user_color"`
	Cursor        CursorPosition `json:"cursor"`
}

// Stale reports whether the record's heartbeat age exceeds the
// liveness window at the given instant.
func (p *PresenceRecord) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastHeartbeat) > window
}

// Clone returns a copy of the record.
func (p *PresenceRecord) Clone() *PresenceRecord {
	c := *p
	return &c
}
