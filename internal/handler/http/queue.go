// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"
	"strconv"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-chi/chi/v5"
)

const defaultFailedLimit = 100

// listQueue returns queue entries, optionally filtered by repeated
// ?status= parameters.
func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []models.QueueStatus
	for _, s := range r.URL.Query()["status"] {
		statuses = append(statuses, models.QueueStatus(s))
	}

	entries, err := h.services.Queue.List(r.Context(), statuses...)
	if err != nil {
		writeServiceError(w, r, "*Handler.listQueue", err)
		return
	}
	utils.WriteJSON(w, entries, http.StatusOK)
}

func (h *Handler) listFailedQueue(w http.ResponseWriter, r *http.Request) {
	limit := defaultFailedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.WriteError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.services.Queue.ListFailed(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "*Handler.listFailedQueue", err)
		return
	}
	utils.WriteJSON(w, entries, http.StatusOK)
}

func (h *Handler) retryQueueEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.services.Queue.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "*Handler.retryQueueEntry", err)
		return
	}
	utils.WriteJSON(w, entry, http.StatusOK)
}
