// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging)

	router.Get("/metrics", h.metrics.Handler().ServeHTTP)
	router.Get("/api/version", h.getVersion)

	// websocket upgrades must not go through the gzip writer
	router.Get("/api/status/stream", h.streamStatus)

	router.Group(func(r chi.Router) {
		r.Use(withGZip)

		r.Get("/api/status", h.getStatus)
		r.Post("/api/sync", h.triggerSync)

		r.Get("/api/records/{type}", h.listRecords)
		r.With(h.withHashCheck).Post("/api/records/{type}", h.createRecord)
		r.Get("/api/records/{type}/{id}", h.getRecord)
		r.With(h.withHashCheck).Patch("/api/records/{type}/{id}", h.updateRecord)
		r.Delete("/api/records/{type}/{id}", h.deleteRecord)
		r.Get("/api/records/{type}/{id}/conflicts", h.listRecordConflicts)

		r.Get("/api/conflicts", h.listConflicts)
		r.Get("/api/conflicts/{id}", h.getConflict)
		r.With(h.withHashCheck).Post("/api/conflicts/{id}/resolve", h.resolveConflict)

		r.Get("/api/queue", h.listQueue)
		r.Get("/api/queue/failed", h.listFailedQueue)
		r.Post("/api/queue/{id}/retry", h.retryQueueEntry)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
