// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/handler"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/server"
	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/internal/workers"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type App struct {
	storages *store.ClientStorages
	services *service.ClientServices
	workers  *workers.Workers
	logger   *logger.Logger
}

// NewApp opens the local store and wires every component of the daemon.
// Nothing touches the network until Run.
func NewApp(ctx context.Context, cfg *config.ClientConfig, buildInfo models.AppBuildInfo, logger *logger.Logger) (*App, error) {
	var clock utils.Clock

	storages, err := store.NewClientStorages(ctx, cfg.Storage, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	remote, err := newRemote(cfg, clock, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create remote adapter: %w", err)
	}

	monitor := connectivity.NewMonitor(false, clock, logger.WithComponent("connectivity"))
	pinger, _ := remote.(connectivity.Pinger)
	source, err := connectivity.NewSource(cfg.Connectivity, pinger, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create connectivity source: %w", err)
	}

	m := metrics.New()
	services := service.NewClientServices(storages, remote, format.NewDefaultAdapter(), monitor, m, cfg, clock, logger)

	handlers, err := handler.NewHandlers(services, m, buildInfo, cfg, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create handlers: %w", err)
	}
	srv, err := server.NewServer(handlers, cfg.Server, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}

	return &App{
		storages: storages,
		services: services,
		workers: workers.NewWorkers(logger,
			workers.Connectivity(source, monitor),
			workers.SyncJob(services.SyncJob, cfg.Workers.SyncInterval),
			workers.Server(srv),
		),
		logger: logger,
	}, nil
}

func newRemote(cfg *config.ClientConfig, clock utils.Clock, logger *logger.Logger) (adapter.RemoteAPI, error) {
	switch cfg.Adapter.Kind {
	case config.AdapterMemory:
		logger.Warn().Msg("using the in-memory remote; nothing leaves this process")
		return adapter.NewMemoryRemote(clock), nil
	default:
		return adapter.NewHTTPRemote(cfg.Adapter, cfg.App, logger.WithComponent("remote"))
	}
}

// Run publishes the initial counters, runs the workers until ctx is
// canceled and closes the local store.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.storages.Close(); err != nil {
			a.logger.Err(err).Msg("close local storage")
		}
	}()

	a.services.Orchestrator.RefreshStatus(ctx)

	if err := a.workers.Run(ctx); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	a.logger.Info().Msg("daemon stopped")
	return nil
}
