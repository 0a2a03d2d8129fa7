// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/service"
	"github.com/MKhiriev/go-sync-keeper/models"
)

type Handler struct {
	services  *service.ClientServices
	metrics   *metrics.Metrics
	buildInfo models.AppBuildInfo

	// hashKey enables HashSHA256 verification of request bodies when set.
	hashKey string

	// closing is closed on shutdown to end status streams, whose hijacked
	// connections are not tracked by http.Server.
	closing   chan struct{}
	closeOnce sync.Once

	logger *logger.Logger
}

func NewHandler(services *service.ClientServices, m *metrics.Metrics, buildInfo models.AppBuildInfo, hashKey string, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services:  services,
		metrics:   m,
		buildInfo: buildInfo,
		hashKey:   hashKey,
		closing:   make(chan struct{}),
		logger:    logger,
	}
}

// Close ends every open status stream. It is safe to call more than once.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}
