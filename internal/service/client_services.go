// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
)

// ClientServices groups every service of the sync daemon.
type ClientServices struct {
	Status       *StatusPublisher
	Records      RecordService
	Conflicts    ConflictService
	Queue        QueueService
	Orchestrator SyncOrchestrator
	SyncJob      SyncJob
}

// NewClientServices wires the services around one local store and one
// remote. Local writes and resolutions refresh the published counters.
func NewClientServices(
	storages *store.ClientStorages,
	remote adapter.RemoteAPI,
	f *format.Adapter,
	monitor *connectivity.Monitor,
	m *metrics.Metrics,
	cfg *config.ClientConfig,
	clock utils.Clock,
	logger *logger.Logger,
) *ClientServices {
	status := NewStatusPublisher()
	validator := validators.NewRecordValidator()
	opts := NewSyncOptions(cfg.Sync)

	orchestrator := NewSyncOrchestrator(storages, remote, f, cfg.App.Scope, opts, status, m, clock, logger)

	return &ClientServices{
		Status:       status,
		Records:      NewRecordService(storages, f, validator, orchestrator.RefreshStatus, logger),
		Conflicts:    NewConflictService(storages, f, validator, m, orchestrator.RefreshStatus, logger),
		Queue:        NewQueueService(storages.Queue, orchestrator.RefreshStatus),
		Orchestrator: orchestrator,
		SyncJob:      NewSyncJob(orchestrator, monitor, status, opts.BackoffInitial, opts.BackoffMax, logger),
	}
}
