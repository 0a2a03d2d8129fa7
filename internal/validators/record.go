// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// Field name constants used to restrict validation to a subset of fields.
const (
	// FieldType targets the entity type of a record request.
	FieldType = "type"

	// FieldID targets the local record id.
	FieldID = "id"

	// FieldPayload targets the record payload.
	FieldPayload = "payload"

	// FieldConflictID targets the id of the conflict being resolved.
	FieldConflictID = "conflict_id"

	// FieldResolution targets the requested resolution.
	FieldResolution = "resolution"

	// FieldMergedPayload requires a payload when the resolution is merged.
	FieldMergedPayload = "merged_payload"
)

// RecordValidator implements the Validator interface for the record and
// conflict requests accepted by the service layer. Both value and pointer
// forms are supported.
type RecordValidator struct{}

// NewRecordValidator constructs a RecordValidator and returns it as the
// Validator interface.
func NewRecordValidator() Validator {
	return &RecordValidator{}
}

// Validate dispatches validation to the type-specific method.
func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.CreateRecordRequest:
		return v.validateCreate(value, fields...)
	case *models.CreateRecordRequest:
		return v.validateCreate(*value, fields...)

	case models.UpdateRecordRequest:
		return v.validateUpdate(value, fields...)
	case *models.UpdateRecordRequest:
		return v.validateUpdate(*value, fields...)

	case models.DeleteRecordRequest:
		return v.validateDelete(value, fields...)
	case *models.DeleteRecordRequest:
		return v.validateDelete(*value, fields...)

	case models.ResolveConflictRequest:
		return v.validateResolve(value, fields...)
	case *models.ResolveConflictRequest:
		return v.validateResolve(*value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateCreate(req models.CreateRecordRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldType, FieldPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldType:
			if !req.Type.Valid() {
				return ErrInvalidEntityType
			}
		case FieldPayload:
			if len(req.Payload) == 0 {
				return ErrEmptyPayload
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *RecordValidator) validateUpdate(req models.UpdateRecordRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldType, FieldID, FieldPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldType:
			if !req.Type.Valid() {
				return ErrInvalidEntityType
			}
		case FieldID:
			if req.ID == "" {
				return ErrInvalidID
			}
		case FieldPayload:
			if len(req.Payload) == 0 {
				return ErrEmptyPayload
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *RecordValidator) validateDelete(req models.DeleteRecordRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldType, FieldID}
	}

	for _, f := range fields {
		switch f {
		case FieldType:
			if !req.Type.Valid() {
				return ErrInvalidEntityType
			}
		case FieldID:
			if req.ID == "" {
				return ErrInvalidID
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *RecordValidator) validateResolve(req models.ResolveConflictRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldConflictID, FieldResolution, FieldMergedPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldConflictID:
			if req.ConflictID == "" {
				return ErrInvalidConflictID
			}
		case FieldResolution:
			if !req.Resolution.Valid() {
				return ErrInvalidResolution
			}
		case FieldMergedPayload:
			if req.Resolution == models.ResolutionMerged && len(req.MergedPayload) == 0 {
				return ErrMergedPayloadMissing
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}
