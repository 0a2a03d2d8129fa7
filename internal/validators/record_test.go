// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordValidator(t *testing.T) {
	v := NewRecordValidator()
	require.NotNil(t, v)
}

// ── Validate dispatch ────────────────────────────────────────────────────────

func TestValidate_UnsupportedType(t *testing.T) {
	v := NewRecordValidator()
	assert.ErrorIs(t, v.Validate(context.Background(), 42), ErrUnsupportedType)
	assert.ErrorIs(t, v.Validate(context.Background(), models.Entity{}), ErrUnsupportedType)
}

func TestValidate_UnknownField(t *testing.T) {
	v := NewRecordValidator()
	req := models.CreateRecordRequest{Type: models.EntityPatient, Payload: models.Payload{"a": 1}}
	assert.ErrorIs(t, v.Validate(context.Background(), req, "nope"), ErrUnknownField)
}

// ── Create / Update / Delete ─────────────────────────────────────────────────

func TestValidate_RecordRequests(t *testing.T) {
	ctx := context.Background()
	v := NewRecordValidator()
	payload := models.Payload{"givenName": "Amara"}

	tests := []struct {
		name    string
		obj     any
		fields  []string
		wantErr error
	}{
		{"create ok", models.CreateRecordRequest{Type: models.EntityPatient, Payload: payload}, nil, nil},
		{"create pointer ok", &models.CreateRecordRequest{Type: models.EntityPatient, Payload: payload}, nil, nil},
		{"create bad type", models.CreateRecordRequest{Type: "vaults", Payload: payload}, nil, ErrInvalidEntityType},
		{"create empty payload", models.CreateRecordRequest{Type: models.EntityPatient}, nil, ErrEmptyPayload},
		{"create type only", models.CreateRecordRequest{Type: models.EntityPatient}, []string{FieldType}, nil},
		{"update ok", models.UpdateRecordRequest{Type: models.EntityPatient, ID: "p-1", Payload: payload}, nil, nil},
		{"update missing id", &models.UpdateRecordRequest{Type: models.EntityPatient, Payload: payload}, nil, ErrInvalidID},
		{"update empty payload", models.UpdateRecordRequest{Type: models.EntityPatient, ID: "p-1"}, nil, ErrEmptyPayload},
		{"delete ok", models.DeleteRecordRequest{Type: models.EntityNotification, ID: "n-1"}, nil, nil},
		{"delete bad type", &models.DeleteRecordRequest{ID: "n-1"}, nil, ErrInvalidEntityType},
		{"delete missing id", models.DeleteRecordRequest{Type: models.EntityNotification}, nil, ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.obj, tt.fields...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ── Resolve ──────────────────────────────────────────────────────────────────

func TestValidate_ResolveConflictRequest(t *testing.T) {
	ctx := context.Background()
	v := NewRecordValidator()

	tests := []struct {
		name    string
		req     models.ResolveConflictRequest
		wantErr error
	}{
		{"keep local", models.ResolveConflictRequest{ConflictID: "c-1", Resolution: models.ResolutionKeepLocal}, nil},
		{"keep remote", models.ResolveConflictRequest{ConflictID: "c-1", Resolution: models.ResolutionKeepRemote}, nil},
		{"merged", models.ResolveConflictRequest{ConflictID: "c-1", Resolution: models.ResolutionMerged, MergedPayload: models.Payload{"x": 1}}, nil},
		{"merged without payload", models.ResolveConflictRequest{ConflictID: "c-1", Resolution: models.ResolutionMerged}, ErrMergedPayloadMissing},
		{"unresolved is not a resolution", models.ResolveConflictRequest{ConflictID: "c-1", Resolution: models.ResolutionUnresolved}, ErrInvalidResolution},
		{"missing id", models.ResolveConflictRequest{Resolution: models.ResolutionKeepLocal}, ErrInvalidConflictID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
