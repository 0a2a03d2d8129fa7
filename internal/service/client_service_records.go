// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type recordService struct {
	storages  *store.ClientStorages
	format    *format.Adapter
	validator validators.Validator
	onWrite   func(ctx context.Context)
	logger    *logger.Logger
}

// NewRecordService constructs the local write path. onWrite, when set, runs
// after every committed mutation (the daemon uses it to refresh the pending
// counter of the published status).
func NewRecordService(storages *store.ClientStorages, f *format.Adapter, validator validators.Validator, onWrite func(ctx context.Context), logger *logger.Logger) RecordService {
	return &recordService{
		storages:  storages,
		format:    f,
		validator: validator,
		onWrite:   onWrite,
		logger:    logger,
	}
}

func (s *recordService) Create(ctx context.Context, t models.EntityType, payload models.Payload) (models.Entity, error) {
	if err := s.validator.Validate(ctx, models.CreateRecordRequest{Type: t, Payload: payload}); err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	var created models.Entity
	err := s.storages.InTx(ctx, func(tx *store.ClientStorages) error {
		e, err := tx.Records.Create(ctx, t, payload)
		if err != nil {
			return err
		}
		created = e
		return enqueueEntity(ctx, tx, s.format, e, models.OperationCreate)
	})
	if err != nil {
		return models.Entity{}, fmt.Errorf("create %s: %w", t, err)
	}

	s.written(ctx)
	return created, nil
}

func (s *recordService) Update(ctx context.Context, t models.EntityType, id string, partial models.Payload) (models.Entity, error) {
	req := models.UpdateRecordRequest{Type: t, ID: id, Payload: partial}
	if err := s.validator.Validate(ctx, req); err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	var updated models.Entity
	err := s.storages.InTx(ctx, func(tx *store.ClientStorages) error {
		e, err := tx.Records.Update(ctx, t, id, partial)
		if err != nil {
			return err
		}
		updated = e
		return enqueueEntity(ctx, tx, s.format, e, models.OperationUpdate)
	})
	if err != nil {
		return models.Entity{}, fmt.Errorf("update %s %s: %w", t, id, err)
	}

	s.written(ctx)
	return updated, nil
}

func (s *recordService) Delete(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	if err := s.validator.Validate(ctx, models.DeleteRecordRequest{Type: t, ID: id}); err != nil {
		return models.Entity{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	var (
		deleted models.Entity
		changed bool
	)
	err := s.storages.InTx(ctx, func(tx *store.ClientStorages) error {
		current, err := tx.Records.Get(ctx, t, id)
		if err != nil {
			return err
		}
		if current.Deleted {
			deleted = current
			return nil
		}

		e, err := tx.Records.SoftDelete(ctx, t, id)
		if err != nil {
			return err
		}
		deleted, changed = e, true
		return enqueueEntity(ctx, tx, s.format, e, models.OperationDelete)
	})
	if err != nil {
		return models.Entity{}, fmt.Errorf("delete %s %s: %w", t, id, err)
	}

	if changed {
		s.written(ctx)
	}
	return deleted, nil
}

func (s *recordService) Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	e, err := s.storages.Records.Get(ctx, t, id)
	if err != nil {
		return models.Entity{}, err
	}
	if e.Deleted {
		return models.Entity{}, fmt.Errorf("%w: %s %s is deleted", store.ErrRecordNotFound, t, id)
	}
	return e, nil
}

func (s *recordService) List(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataProvided, validators.ErrInvalidEntityType)
	}
	return s.storages.Records.List(ctx, t)
}

func (s *recordService) written(ctx context.Context) {
	if s.onWrite != nil {
		s.onWrite(ctx)
	}
}
