// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-resty/resty/v2"
)

// Header names understood by the remote service.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderFacilityID     = "X-Facility-ID"
	HeaderUserID         = "X-User-ID"
	HeaderTraceID        = "X-Trace-ID"
)

// HTTPRemote talks to the remote service over REST.
type HTTPRemote struct {
	client  *utils.HTTPClient
	hashKey string
	logger  *logger.Logger
}

// createRequest is the body of POST /api/records/{type}.
type createRequest struct {
	Fields models.WireFields `json:"fields"`
}

// updateRequest is the body of PUT /api/records/{type}/{id}.
type updateRequest struct {
	BaseVersion int64             `json:"base_version"`
	Fields      models.WireFields `json:"fields"`
}

// NewHTTPRemote constructs the HTTP/REST implementation of [RemoteAPI].
// It normalises the base URL from adapterCfg.HTTPAddress and configures the
// underlying client with the request timeout. Request bodies are signed with
// appCfg.HashKey when it is set.
func NewHTTPRemote(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (*HTTPRemote, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	return &HTTPRemote{
		client:  utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		hashKey: appCfg.HashKey,
		logger:  logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// CreateRecord implements [RemoteAPI]. POST /api/records/{type}.
func (h *HTTPRemote) CreateRecord(ctx context.Context, scope models.Scope, t models.EntityType, clientID string, fields models.WireFields) (models.RemoteAck, error) {
	req, err := h.signedRequest(ctx, scope, createRequest{Fields: fields})
	if err != nil {
		return models.RemoteAck{}, err
	}

	resp, err := req.
		SetHeader(HeaderIdempotencyKey, clientID).
		SetPathParam("type", string(t)).
		Post("/api/records/{type}")
	if err != nil {
		return models.RemoteAck{}, mapTransportError(ctx, "create record", err)
	}
	if err = mapHTTPError(resp); err != nil {
		h.logError(ctx, "HTTPRemote.CreateRecord", t, err)
		return models.RemoteAck{}, err
	}
	var ack models.RemoteAck
	if err = json.Unmarshal(resp.Body(), &ack); err != nil {
		return models.RemoteAck{}, fmt.Errorf("%w: decode create response: %w", ErrTransient, err)
	}
	if ack.RemoteID == "" {
		return models.RemoteAck{}, fmt.Errorf("%w: create response without remote id", ErrTransient)
	}

	return ack, nil
}

// UpdateRecord implements [RemoteAPI]. PUT /api/records/{type}/{id}.
// 409 carries the current remote record in the body, 404 means the record
// no longer exists.
func (h *HTTPRemote) UpdateRecord(ctx context.Context, scope models.Scope, t models.EntityType, remoteID string, baseVersion int64, fields models.WireFields) (models.UpdateResult, error) {
	req, err := h.signedRequest(ctx, scope, updateRequest{BaseVersion: baseVersion, Fields: fields})
	if err != nil {
		return models.UpdateResult{}, err
	}

	resp, err := req.
		SetPathParams(map[string]string{"type": string(t), "id": remoteID}).
		Put("/api/records/{type}/{id}")
	if err != nil {
		return models.UpdateResult{}, mapTransportError(ctx, "update record", err)
	}

	switch resp.StatusCode() {
	case http.StatusConflict:
		result := models.UpdateResult{Status: models.UpdateConflict}
		var current models.RemoteRecord
		if len(resp.Body()) > 0 && json.Unmarshal(resp.Body(), &current) == nil && current.RemoteID != "" {
			result.Current = &current
		}
		return result, nil
	case http.StatusNotFound, http.StatusGone:
		return models.UpdateResult{Status: models.UpdateNotFound}, nil
	}

	if err = mapHTTPError(resp); err != nil {
		h.logError(ctx, "HTTPRemote.UpdateRecord", t, err)
		return models.UpdateResult{}, err
	}

	var ack models.RemoteAck
	if err = json.Unmarshal(resp.Body(), &ack); err != nil {
		return models.UpdateResult{}, fmt.Errorf("%w: decode update response: %w", ErrTransient, err)
	}
	if ack.RemoteID == "" {
		ack.RemoteID = remoteID
	}
	return models.UpdateResult{Status: models.UpdateOK, Ack: ack}, nil
}

// DeleteRecord implements [RemoteAPI]. DELETE /api/records/{type}/{id}.
func (h *HTTPRemote) DeleteRecord(ctx context.Context, scope models.Scope, t models.EntityType, remoteID string) (models.DeleteResult, error) {
	resp, err := h.scopedRequest(ctx, scope).
		SetPathParams(map[string]string{"type": string(t), "id": remoteID}).
		Delete("/api/records/{type}/{id}")
	if err != nil {
		return models.DeleteResult{}, mapTransportError(ctx, "delete record", err)
	}

	if code := resp.StatusCode(); code == http.StatusNotFound || code == http.StatusGone {
		return models.DeleteResult{Status: models.DeleteNotFound}, nil
	}
	if err = mapHTTPError(resp); err != nil {
		h.logError(ctx, "HTTPRemote.DeleteRecord", t, err)
		return models.DeleteResult{}, err
	}
	return models.DeleteResult{Status: models.DeleteOK}, nil
}

// ListChangedSince implements [RemoteAPI].
// GET /api/records/{type}?since={ms}&facility={id}.
func (h *HTTPRemote) ListChangedSince(ctx context.Context, scope models.Scope, t models.EntityType, since int64) ([]models.RemoteRecord, error) {
	req := h.scopedRequest(ctx, scope).
		SetPathParam("type", string(t)).
		SetQueryParam("since", strconv.FormatInt(since, 10))
	if scope.FacilityID != "" {
		req.SetQueryParam("facility", scope.FacilityID)
	}

	resp, err := req.Get("/api/records/{type}")
	if err != nil {
		return nil, mapTransportError(ctx, "list changed records", err)
	}
	if err = mapHTTPError(resp); err != nil {
		h.logError(ctx, "HTTPRemote.ListChangedSince", t, err)
		return nil, err
	}

	var records []models.RemoteRecord
	if err = json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("%w: decode list response: %w", ErrTransient, err)
	}

	for i := range records {
		if records[i].Type == "" {
			records[i].Type = t
		}
	}
	return records, nil
}

// Ping implements [HealthChecker]. GET /api/health.
func (h *HTTPRemote) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return mapTransportError(ctx, "health check", err)
	}
	return mapHTTPError(resp)
}

func (h *HTTPRemote) scopedRequest(ctx context.Context, scope models.Scope) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if scope.Token != "" {
		req.SetAuthToken(scope.Token)
	}
	if scope.FacilityID != "" {
		req.SetHeader(HeaderFacilityID, scope.FacilityID)
	}
	if scope.UserID != "" {
		req.SetHeader(HeaderUserID, scope.UserID)
	}
	if traceID, ok := utils.GetTraceIDFromContext(ctx); ok {
		req.SetHeader(HeaderTraceID, traceID)
	}
	return req
}

// signedRequest marshals body once so the integrity hash covers exactly the
// bytes that are sent.
func (h *HTTPRemote) signedRequest(ctx context.Context, scope models.Scope, body any) (*resty.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request body: %w", ErrRejected, err)
	}

	req := h.scopedRequest(ctx, scope).
		SetHeader("Content-Type", "application/json").
		SetBody(raw)
	if sig := utils.HashString(string(raw), h.hashKey); sig != "" {
		req.SetHeader(utils.HashHeader, sig)
	}
	return req, nil
}

func (h *HTTPRemote) logError(ctx context.Context, fn string, t models.EntityType, err error) {
	logger.FromContext(ctx).Err(err).
		Str("func", fn).
		Str("entity_type", t.String()).
		Msg("remote call failed")
}
