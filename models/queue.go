// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Operation is the kind of remote write a queue entry represents.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) rank() int {
	switch o {
	case OperationDelete:
		return 3
	case OperationCreate:
		return 2
	case OperationUpdate:
		return 1
	default:
		return 0
	}
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o.rank() > 0
}

// CoalesceOperations folds two operations for the same entity into one.
// Delete wins over create, create wins over update. A create followed by
// updates stays a create so the remote side still sees a single insert.
func CoalesceOperations(earlier, later Operation) Operation {
	if later.rank() >= earlier.rank() {
		return later
	}
	return earlier
}

// QueueStatus is the lifecycle state of a queue entry.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusInFlight QueueStatus = "in_flight"
	QueueStatusFailed   QueueStatus = "failed"
)

// QueueEntry is a durable record of a local write awaiting upload.
type QueueEntry struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Operation  Operation  `json:"operation"`

	// Payload is the entity payload at enqueue time, in local naming.
	Payload Payload `json:"payload"`

	// EntityVersion is the local entity version captured at enqueue time.
	// An acknowledgement only clears the dirty flag if the entity still
	// carries this version.
	EntityVersion int64 `json:"entity_version"`

	// Priority orders the drain: higher first, then oldest first.
	Priority int `json:"priority"`

	AttemptCount int         `json:"attempt_count"`
	LastError    string      `json:"last_error,omitempty"`
	Status       QueueStatus `json:"status"`

	// NextAttemptAt is the earliest drain time in milliseconds.
	NextAttemptAt int64 `json:"next_attempt_at"`
	EnqueuedAt    int64 `json:"enqueued_at"`
}
