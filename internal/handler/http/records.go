// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-chi/chi/v5"
)

func entityTypeParam(r *http.Request) models.EntityType {
	return models.EntityType(chi.URLParam(r, "type"))
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.services.Records.List(r.Context(), entityTypeParam(r))
	if err != nil {
		writeServiceError(w, r, "*Handler.listRecords", err)
		return
	}
	utils.WriteJSON(w, records, http.StatusOK)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.services.Records.Get(r.Context(), entityTypeParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "*Handler.getRecord", err)
		return
	}
	utils.WriteJSON(w, record, http.StatusOK)
}

// createRecord stores the JSON object in the body as the payload of a new
// record. The response is the stored entity with its local id.
func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var payload models.Payload
	if err := decodeJSON(r, &payload); err != nil {
		writeServiceError(w, r, "*Handler.createRecord", err)
		return
	}

	record, err := h.services.Records.Create(r.Context(), entityTypeParam(r), payload)
	if err != nil {
		writeServiceError(w, r, "*Handler.createRecord", err)
		return
	}
	utils.WriteJSON(w, record, http.StatusCreated)
}

// updateRecord merges the JSON object in the body into the record.
func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var partial models.Payload
	if err := decodeJSON(r, &partial); err != nil {
		writeServiceError(w, r, "*Handler.updateRecord", err)
		return
	}

	record, err := h.services.Records.Update(r.Context(), entityTypeParam(r), chi.URLParam(r, "id"), partial)
	if err != nil {
		writeServiceError(w, r, "*Handler.updateRecord", err)
		return
	}
	utils.WriteJSON(w, record, http.StatusOK)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.services.Records.Delete(r.Context(), entityTypeParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "*Handler.deleteRecord", err)
		return
	}
	utils.WriteJSON(w, record, http.StatusOK)
}
