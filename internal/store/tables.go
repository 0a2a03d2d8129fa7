// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// recordTables maps entity types to their tables. Table names never come
// from user input.
var recordTables = map[models.EntityType]string{
	models.EntityReferenceData:     "reference_data",
	models.EntityPatient:           "patients",
	models.EntityImmunizationEvent: "immunization_events",
	models.EntityNotification:      "notifications",
}

const (
	queueTable      = "change_queue"
	conflictsTable  = "conflicts"
	checkpointTable = "sync_checkpoint"
)

func tableFor(t models.EntityType) (string, error) {
	table, ok := recordTables[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
	}
	return table, nil
}

var recordColumns = []string{
	"id",
	"remote_id",
	"version",
	"remote_version",
	"last_modified",
	"dirty",
	"deleted",
	"deleted_at",
	"payload",
}

var queueColumns = []string{
	"id",
	"entity_type",
	"entity_id",
	"operation",
	"payload",
	"entity_version",
	"priority",
	"attempt_count",
	"last_error",
	"status",
	"next_attempt_at",
	"enqueued_at",
}

var conflictColumns = []string{
	"id",
	"entity_type",
	"entity_id",
	"conflict_type",
	"local_snapshot",
	"remote_snapshot",
	"detected_at",
	"resolution",
	"resolved_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}
