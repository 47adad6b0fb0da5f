// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// SummaryQueueName is the durable queue carrying summary jobs. The default
// exchange routes by queue name, so it doubles as the routing key.
const SummaryQueueName = "entry.summarize"

// SummaryRequestedEvent is published when a user asks for an AI summary of
// one of their entries. It carries ids only; the consumer re-reads the entry
// under the owner's scope so a stale or foreign id cannot leak content.
type SummaryRequestedEvent struct {
	EntryID     uint64    `json:"entry_id"`
	UserID      uint64    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
