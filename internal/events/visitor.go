// Package events defines event payloads shared by the outbox and consumers.
package events

import "time"

// TypeVisitorFirstSeen is emitted the first time a client is seen on a UTC day.
const TypeVisitorFirstSeen = "visitor.first_seen"

// VisitorFirstSeen is the message enqueued alongside a new activity record.
type VisitorFirstSeen struct {
	ClientID string    `json:"client_id"`
	SeenAt   time.Time `json:"seen_at"`
	Date     string    `json:"date"`
}
