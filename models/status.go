// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Phase is the state of the sync state machine.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseUploading          Phase = "uploading"
	PhaseDownloading        Phase = "downloading"
	PhaseResolvingConflicts Phase = "resolving_conflicts"
	PhaseFailed             Phase = "failed"
)

// Status is the snapshot published to observers of the sync engine.
type Status struct {
	Phase         Phase  `json:"phase"`
	PendingCount  int64  `json:"pending_count"`
	FailedCount   int64  `json:"failed_count"`
	ConflictCount int64  `json:"conflict_count"`
	LastSyncAt    int64  `json:"last_sync_at,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	Connected     bool   `json:"connected"`
}

// Checkpoint is the persisted sync progress marker.
type Checkpoint struct {
	// LastSyncAt is the start time of the last fully successful cycle in
	// milliseconds. Zero before the first successful cycle.
	LastSyncAt int64 `json:"last_sync_at"`
	UpdatedAt  int64 `json:"updated_at"`
}

// TriggerReason says why a sync cycle was requested.
type TriggerReason string

const (
	TriggerStartup   TriggerReason = "startup"
	TriggerTimer     TriggerReason = "timer"
	TriggerReconnect TriggerReason = "reconnect"
	TriggerManual    TriggerReason = "manual"
	TriggerRetry     TriggerReason = "retry"
)

// TriggerResult tells the caller what happened to a trigger request.
type TriggerResult string

const (
	TriggerAccepted   TriggerResult = "accepted"
	TriggerBusy       TriggerResult = "busy"
	TriggerOffline    TriggerResult = "offline"
	TriggerNotRunning TriggerResult = "not_running"
)
