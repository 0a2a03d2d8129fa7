// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type conflictService struct {
	storages  *store.ClientStorages
	format    *format.Adapter
	validator validators.Validator
	metrics   *metrics.Metrics
	onResolve func(ctx context.Context)
	logger    *logger.Logger
}

// NewConflictService constructs the user-facing conflict service. onResolve
// runs after every committed resolution.
func NewConflictService(storages *store.ClientStorages, f *format.Adapter, validator validators.Validator, m *metrics.Metrics, onResolve func(ctx context.Context), logger *logger.Logger) ConflictService {
	return &conflictService{
		storages:  storages,
		format:    f,
		validator: validator,
		metrics:   m,
		onResolve: onResolve,
		logger:    logger,
	}
}

func (s *conflictService) List(ctx context.Context) ([]models.Conflict, error) {
	return s.storages.Conflicts.ListUnresolved(ctx)
}

func (s *conflictService) Get(ctx context.Context, id string) (models.Conflict, error) {
	return s.storages.Conflicts.Get(ctx, id)
}

func (s *conflictService) History(ctx context.Context, t models.EntityType, entityID string) ([]models.Conflict, error) {
	return s.storages.Conflicts.ListForEntity(ctx, t, entityID)
}

func (s *conflictService) Resolve(ctx context.Context, id string, resolution models.Resolution, merged models.Payload) (models.Conflict, error) {
	req := models.ResolveConflictRequest{ConflictID: id, Resolution: resolution, MergedPayload: merged}
	if err := s.validator.Validate(ctx, req); err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	var resolved models.Conflict
	err := s.storages.InTx(ctx, func(tx *store.ClientStorages) error {
		c, err := tx.Conflicts.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Resolved() {
			return fmt.Errorf("%w: %s", store.ErrConflictAlreadyResolved, id)
		}

		resolved, err = applyResolution(ctx, tx, s.format, c, resolution, merged)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "conflictService.Resolve").
			Str("conflict_id", id).
			Str("resolution", string(resolution)).
			Msg("failed to resolve conflict")
		return models.Conflict{}, fmt.Errorf("resolve conflict %s: %w", id, err)
	}

	s.metrics.ObserveConflict(string(models.PolicyManual), string(resolution))
	if s.onResolve != nil {
		s.onResolve(ctx)
	}
	return resolved, nil
}
