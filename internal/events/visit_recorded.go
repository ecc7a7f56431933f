package events

import "time"

const VisitRecordedType = "visit.recorded"

// VisitRecorded is published for every accepted redirect when the outbox
// pipeline is enabled. EventID is the idempotency key on the consumer side.
type VisitRecorded struct {
	EventID    string    `json:"eventId"`
	LinkID     string    `json:"linkId"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
