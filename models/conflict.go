// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// ConflictType describes which sides diverged and how.
type ConflictType string

const (
	ConflictUpdateUpdate ConflictType = "update_update"
	ConflictUpdateDelete ConflictType = "update_delete"
	ConflictDeleteUpdate ConflictType = "delete_update"
)

// Resolution is the outcome recorded on a conflict.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionKeepLocal  Resolution = "keep_local"
	ResolutionKeepRemote Resolution = "keep_remote"
	ResolutionMerged     Resolution = "merged"
)

// Valid reports whether r is a terminal resolution a caller may request.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionKeepLocal, ResolutionKeepRemote, ResolutionMerged:
		return true
	default:
		return false
	}
}

// Conflict records a divergence between the local and the remote state of a
// single entity. At most one unresolved conflict exists per entity.
type Conflict struct {
	ID             string       `json:"id"`
	EntityType     EntityType   `json:"entity_type"`
	EntityID       string       `json:"entity_id"`
	ConflictType   ConflictType `json:"conflict_type"`
	LocalSnapshot  Snapshot     `json:"local_snapshot"`
	RemoteSnapshot Snapshot     `json:"remote_snapshot"`
	DetectedAt     int64        `json:"detected_at"`
	Resolution     Resolution   `json:"resolution"`
	ResolvedAt     *int64       `json:"resolved_at,omitempty"`
}

// Resolved reports whether a resolution has been recorded.
func (c Conflict) Resolved() bool {
	return c.Resolution != ResolutionUnresolved
}

// ConflictPolicy selects how divergent records are settled.
type ConflictPolicy string

const (
	// PolicyManual records conflicts and waits for an explicit resolution.
	PolicyManual ConflictPolicy = "manual"
	// PolicyLocalWins keeps the local state and re-uploads it.
	PolicyLocalWins ConflictPolicy = "local"
	// PolicyRemoteWins overwrites the local state with the remote one.
	PolicyRemoteWins ConflictPolicy = "remote"
	// PolicyTimestamp keeps whichever side was modified later. Ties go to
	// the local side.
	PolicyTimestamp ConflictPolicy = "timestamp"
)

// ParseConflictPolicy converts a configuration value into a policy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(s); p {
	case PolicyManual, PolicyLocalWins, PolicyRemoteWins, PolicyTimestamp:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}
