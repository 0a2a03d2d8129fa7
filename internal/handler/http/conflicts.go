// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-chi/chi/v5"
)

type resolveRequest struct {
	Resolution    models.Resolution `json:"resolution"`
	MergedPayload models.Payload    `json:"merged_payload,omitempty"`
}

func (h *Handler) listConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.services.Conflicts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, "*Handler.listConflicts", err)
		return
	}
	utils.WriteJSON(w, conflicts, http.StatusOK)
}

func (h *Handler) getConflict(w http.ResponseWriter, r *http.Request) {
	conflict, err := h.services.Conflicts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "*Handler.getConflict", err)
		return
	}
	utils.WriteJSON(w, conflict, http.StatusOK)
}

// listRecordConflicts returns the conflict history of one record.
func (h *Handler) listRecordConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.services.Conflicts.History(r.Context(), entityTypeParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "*Handler.listRecordConflicts", err)
		return
	}
	utils.WriteJSON(w, conflicts, http.StatusOK)
}

func (h *Handler) resolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, "*Handler.resolveConflict", err)
		return
	}

	resolved, err := h.services.Conflicts.Resolve(r.Context(), chi.URLParam(r, "id"), req.Resolution, req.MergedPayload)
	if err != nil {
		writeServiceError(w, r, "*Handler.resolveConflict", err)
		return
	}
	utils.WriteJSON(w, resolved, http.StatusOK)
}
