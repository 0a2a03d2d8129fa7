// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecords_CRUD(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(t, http.MethodPost, "/api/records/patients", models.Payload{"givenName": "Amara"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Entity](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Dirty)
	assert.Equal(t, "Amara", created.Payload["givenName"])

	rec = api.do(t, http.MethodPatch, "/api/records/patients/"+created.ID, models.Payload{"familyName": "Kamau"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[models.Entity](t, rec)
	assert.Equal(t, "Amara", updated.Payload["givenName"])
	assert.Equal(t, "Kamau", updated.Payload["familyName"])

	rec = api.do(t, http.MethodGet, "/api/records/patients/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated.Version, decodeBody[models.Entity](t, rec).Version)

	rec = api.do(t, http.MethodGet, "/api/records/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Entity](t, rec), 1)

	rec = api.do(t, http.MethodDelete, "/api/records/patients/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[models.Entity](t, rec).Deleted)

	rec = api.do(t, http.MethodGet, "/api/records/patients/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecords_Errors(t *testing.T) {
	api := newTestAPI(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "unknown type", method: http.MethodPost, path: "/api/records/vaccines", body: models.Payload{"a": 1}, wantStatus: http.StatusBadRequest},
		{name: "empty payload", method: http.MethodPost, path: "/api/records/patients", body: models.Payload{}, wantStatus: http.StatusBadRequest},
		{name: "list unknown type", method: http.MethodGet, path: "/api/records/vaccines", wantStatus: http.StatusBadRequest},
		{name: "missing record", method: http.MethodGet, path: "/api/records/patients/nope", wantStatus: http.StatusNotFound},
		{name: "update missing record", method: http.MethodPatch, path: "/api/records/patients/nope", body: models.Payload{"a": 1}, wantStatus: http.StatusNotFound},
		{name: "delete missing record", method: http.MethodDelete, path: "/api/records/patients/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["error"])
		})
	}
}

func TestRecords_InvalidJSON(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(t, http.MethodPost, "/api/records/patients", "not an object")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
