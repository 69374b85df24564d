package models

import "time"

// EventKind says what kind of write produced a lifecycle event
type EventKind string

// Event kinds
const (
	EventCreated    EventKind = "created"
	EventTransition EventKind = "transition"
	EventUpdated    EventKind = "updated"
	EventDeleted    EventKind = "deleted"
)

// LifecycleEvent is published once for every accepted write to a report. It is a
// freshness hint, the report store stays the source of truth.
type LifecycleEvent struct {
	ID               string    `json:"id"`
	Kind             EventKind `json:"kind"`
	ReportID         string    `json:"reportId"`
	PreviousStatus   Status    `json:"previousStatus,omitempty"`
	NewStatus        Status    `json:"newStatus"`
	Assignee         string    `json:"assignee,omitempty"`
	PreviousAssignee string    `json:"previousAssignee,omitempty"`
	Owner            string    `json:"owner"`
	Actor            string    `json:"actor"`
	Version          int64     `json:"version"`
	Report           *Report   `json:"report,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Broadcast is a system-wide administrator message not tied to any report
type Broadcast struct {
	ID        string    `bson:"_id" json:"id"`
	Author    string    `bson:"author" json:"author"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Envelope types sent over a session
const (
	EnvelopeReportEvent = "report_event"
	EnvelopeBroadcast   = "broadcast"
	EnvelopeDigest      = "workload_digest"
)

// Envelope is what a connected session receives
type Envelope struct {
	Type      string            `json:"type"`
	Event     *LifecycleEvent   `json:"event,omitempty"`
	Broadcast *Broadcast        `json:"broadcast,omitempty"`
	Workload  []OfficerWorkload `json:"workload,omitempty"`
}

// StatusChange is one row of a report's audit history
type StatusChange struct {
	ID         string    `bson:"_id" json:"id"`
	ReportID   string    `bson:"reportId" json:"reportId"`
	Action     string    `bson:"action" json:"action"`
	FromStatus Status    `bson:"fromStatus,omitempty" json:"fromStatus,omitempty"`
	ToStatus   Status    `bson:"toStatus" json:"toStatus"`
	Assignee   string    `bson:"assignee,omitempty" json:"assignee,omitempty"`
	Actor      string    `bson:"actor" json:"actor"`
	Version    int64     `bson:"version" json:"version"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}
