// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/go-resty/resty/v2"
)

// Client calls the daemon control API.
type Client struct {
	http    *utils.HTTPClient
	hashKey string
}

// NewClient returns a client for the daemon at address. Bodies are signed
// with hashKey when it is set.
func NewClient(address string, timeout time.Duration, hashKey string) *Client {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &Client{http: utils.NewHTTPClient(address, timeout), hashKey: hashKey}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

func (c *Client) signed(ctx context.Context, body any) (*resty.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req := c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(raw)
	if sig := utils.HashString(string(raw), c.hashKey); sig != "" {
		req.SetHeader(utils.HashHeader, sig)
	}
	return req, nil
}

// decode checks the status and unmarshals the body into out. Statuses in
// accept are treated like 2xx.
func decode(resp *resty.Response, err error, out any, accept ...int) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDaemonUnreachable, err)
	}

	code := resp.StatusCode()
	ok := code >= http.StatusOK && code < http.StatusMultipleChoices
	for _, a := range accept {
		ok = ok || code == a
	}
	if !ok {
		var body utils.ErrorBody
		if json.Unmarshal(resp.Body(), &body) != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(resp.Body()))
		}
		if body.Error == "" {
			body.Error = http.StatusText(code)
		}
		return fmt.Errorf("%w: http %d: %s", ErrRequestFailed, code, body.Error)
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (models.Status, error) {
	var s models.Status
	resp, err := c.request(ctx).Get("/api/status")
	return s, decode(resp, err, &s)
}

// Sync requests a manual cycle. Busy and offline answers are results, not
// errors.
func (c *Client) Sync(ctx context.Context) (models.TriggerResult, error) {
	var out struct {
		Result models.TriggerResult `json:"result"`
	}
	resp, err := c.request(ctx).Post("/api/sync")
	if err = decode(resp, err, &out, http.StatusConflict, http.StatusServiceUnavailable); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (c *Client) ListRecords(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	var out []models.Entity
	resp, err := c.request(ctx).SetPathParam("type", string(t)).Get("/api/records/{type}")
	return out, decode(resp, err, &out)
}

func (c *Client) ListConflicts(ctx context.Context) ([]models.Conflict, error) {
	var out []models.Conflict
	resp, err := c.request(ctx).Get("/api/conflicts")
	return out, decode(resp, err, &out)
}

func (c *Client) ResolveConflict(ctx context.Context, id string, resolution models.Resolution, merged models.Payload) (models.Conflict, error) {
	var out models.Conflict
	req, err := c.signed(ctx, models.ResolveConflictRequest{Resolution: resolution, MergedPayload: merged})
	if err != nil {
		return out, err
	}
	resp, err := req.SetPathParam("id", id).Post("/api/conflicts/{id}/resolve")
	return out, decode(resp, err, &out)
}

func (c *Client) ListFailed(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	req := c.request(ctx)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get("/api/queue/failed")
	return out, decode(resp, err, &out)
}

func (c *Client) Retry(ctx context.Context, id string) (models.QueueEntry, error) {
	var out models.QueueEntry
	resp, err := c.request(ctx).SetPathParam("id", id).Post("/api/queue/{id}/retry")
	return out, decode(resp, err, &out)
}
