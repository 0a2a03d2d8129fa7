// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"

	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// storeRefs resolves references through the record store. It must be bound
// to the same repositories (and transaction) as the caller.
type storeRefs struct {
	records store.RecordRepository
}

func newStoreRefs(records store.RecordRepository) storeRefs {
	return storeRefs{records: records}
}

// RemoteIDFor implements format.RefResolver. A local entity that has not
// been uploaded yet is known but has no remote id.
func (r storeRefs) RemoteIDFor(ctx context.Context, t models.EntityType, localID string) (string, bool, error) {
	e, err := r.records.Get(ctx, t, localID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return e.RemoteIDOrEmpty(), true, nil
}

// LocalIDFor implements format.RefResolver.
func (r storeRefs) LocalIDFor(ctx context.Context, t models.EntityType, remoteID string) (string, bool, error) {
	e, err := r.records.GetByRemoteID(ctx, t, remoteID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return e.ID, true, nil
}
