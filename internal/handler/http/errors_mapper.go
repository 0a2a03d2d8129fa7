// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
)

var errorStatusMap = map[error]int{
	ErrInvalidJSON: http.StatusBadRequest,

	service.ErrInvalidDataProvided: http.StatusBadRequest,
	service.ErrIncompleteSnapshot:  http.StatusConflict,
	service.ErrCycleInProgress:     http.StatusConflict,
	service.ErrStorageFailure:      http.StatusInternalServerError,

	validators.ErrInvalidEntityType:    http.StatusBadRequest,
	validators.ErrInvalidID:            http.StatusBadRequest,
	validators.ErrEmptyPayload:         http.StatusBadRequest,
	validators.ErrInvalidConflictID:    http.StatusBadRequest,
	validators.ErrInvalidResolution:    http.StatusBadRequest,
	validators.ErrMergedPayloadMissing: http.StatusBadRequest,

	store.ErrRecordNotFound:          http.StatusNotFound,
	store.ErrConflictNotFound:        http.StatusNotFound,
	store.ErrQueueEntryNotFound:      http.StatusNotFound,
	store.ErrUnknownEntityType:       http.StatusBadRequest,
	store.ErrRecordChanged:           http.StatusConflict,
	store.ErrConflictAlreadyResolved: http.StatusConflict,
	store.ErrQueueEntryNotFailed:     http.StatusConflict,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
