// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type queueService struct {
	queue   store.QueueRepository
	onRetry func(ctx context.Context)
}

// NewQueueService constructs the queue inspection service.
func NewQueueService(queue store.QueueRepository, onRetry func(ctx context.Context)) QueueService {
	return &queueService{queue: queue, onRetry: onRetry}
}

func (s *queueService) List(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueEntry, error) {
	return s.queue.List(ctx, statuses...)
}

func (s *queueService) ListFailed(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	return s.queue.ListFailed(ctx, limit)
}

// Retry puts a permanently failed entry back into the pending state.
func (s *queueService) Retry(ctx context.Context, id string) (models.QueueEntry, error) {
	entry, err := s.queue.Retry(ctx, id)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if s.onRetry != nil {
		s.onRetry(ctx)
	}
	return entry, nil
}
