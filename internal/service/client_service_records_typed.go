// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// TypedRecords is a typed facade over RecordService for one domain type.
type TypedRecords[T models.Domain] struct {
	records RecordService
	kind    models.EntityType
}

// NewTypedRecords binds records to the entity type of T.
func NewTypedRecords[T models.Domain](records RecordService) *TypedRecords[T] {
	var zero T
	return &TypedRecords[T]{records: records, kind: zero.EntityType()}
}

// Create stores v as a new record.
func (r *TypedRecords[T]) Create(ctx context.Context, v T) (models.Record[T], error) {
	payload, err := models.ToPayload(v)
	if err != nil {
		return models.Record[T]{}, err
	}
	e, err := r.records.Create(ctx, r.kind, payload)
	if err != nil {
		return models.Record[T]{}, err
	}
	return models.RecordFromEntity[T](e)
}

// Get loads a live record.
func (r *TypedRecords[T]) Get(ctx context.Context, id string) (models.Record[T], error) {
	e, err := r.records.Get(ctx, r.kind, id)
	if err != nil {
		return models.Record[T]{}, err
	}
	return models.RecordFromEntity[T](e)
}

// Update merges the encoded fields of v into the record. Fields omitted by
// v's JSON encoding keep their stored value.
func (r *TypedRecords[T]) Update(ctx context.Context, id string, v T) (models.Record[T], error) {
	payload, err := models.ToPayload(v)
	if err != nil {
		return models.Record[T]{}, err
	}
	e, err := r.records.Update(ctx, r.kind, id, payload)
	if err != nil {
		return models.Record[T]{}, err
	}
	return models.RecordFromEntity[T](e)
}

// Delete soft-deletes the record.
func (r *TypedRecords[T]) Delete(ctx context.Context, id string) error {
	_, err := r.records.Delete(ctx, r.kind, id)
	return err
}

// List returns every live record of T.
func (r *TypedRecords[T]) List(ctx context.Context) ([]models.Record[T], error) {
	entities, err := r.records.List(ctx, r.kind)
	if err != nil {
		return nil, err
	}

	out := make([]models.Record[T], 0, len(entities))
	for _, e := range entities {
		rec, err := models.RecordFromEntity[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
