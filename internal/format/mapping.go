// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package format converts records between the local representation
// (camelCase payload keys, local foreign keys) and the remote wire
// representation (snake_case field names, remote foreign keys).
//
// Every entity type has a [Mapping]. The sync orchestrator only deals with
// [models.Payload] and [models.WireFields]; it never touches raw field names.
package format

import (
	"maps"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// Mapping is the field table of one entity type.
type Mapping struct {
	Type models.EntityType

	// Fields maps local field names to wire field names. Fields missing
	// from the table are sent under their local name.
	Fields map[string]string

	// References lists local fields holding the local id of another
	// entity, keyed by field name.
	References map[string]models.EntityType

	// LocalOnly fields are stripped before upload and preserved when a
	// remote snapshot is applied locally.
	LocalOnly []string
}

func (m Mapping) isLocalOnly(field string) bool {
	for _, f := range m.LocalOnly {
		if f == field {
			return true
		}
	}
	return false
}

func (m Mapping) reversed() map[string]string {
	out := make(map[string]string, len(m.Fields))
	for local, wire := range m.Fields {
		out[wire] = local
	}
	return out
}

func (m Mapping) clone() Mapping {
	out := m
	out.Fields = maps.Clone(m.Fields)
	out.References = maps.Clone(m.References)
	out.LocalOnly = append([]string(nil), m.LocalOnly...)
	return out
}

// DefaultMappings returns the field tables of the built-in entity types.
func DefaultMappings() []Mapping {
	return []Mapping{
		{
			Type: models.EntityReferenceData,
			Fields: map[string]string{
				"category": "category",
				"code":     "code",
				"label":    "display_label",
				"active":   "is_active",
			},
		},
		{
			Type: models.EntityPatient,
			Fields: map[string]string{
				"givenName":   "given_name",
				"familyName":  "family_name",
				"dateOfBirth": "date_of_birth",
				"sex":         "sex",
				"phoneNumber": "phone_number",
				"facilityId":  "facility_id",
			},
			LocalOnly: []string{"draftNote"},
		},
		{
			Type: models.EntityImmunizationEvent,
			Fields: map[string]string{
				"patientId":      "patient_id",
				"vaccineCode":    "vaccine_code",
				"doseNumber":     "dose_number",
				"administeredAt": "administered_at",
				"lotNumber":      "lot_number",
				"site":           "site",
			},
			References: map[string]models.EntityType{
				"patientId": models.EntityPatient,
			},
		},
		{
			Type: models.EntityNotification,
			Fields: map[string]string{
				"patientId": "patient_id",
				"channel":   "channel",
				"message":   "message",
				"sendAt":    "send_at",
				"read":      "is_read",
			},
			References: map[string]models.EntityType{
				"patientId": models.EntityPatient,
			},
		},
	}
}
