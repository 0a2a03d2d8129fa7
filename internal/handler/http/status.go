// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const streamWriteTimeout = 5 * time.Second

type triggerResponse struct {
	Result models.TriggerResult `json:"result"`
}

var triggerStatus = map[models.TriggerResult]int{
	models.TriggerAccepted:   http.StatusAccepted,
	models.TriggerBusy:       http.StatusConflict,
	models.TriggerOffline:    http.StatusServiceUnavailable,
	models.TriggerNotRunning: http.StatusServiceUnavailable,
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.services.Status.Snapshot(), http.StatusOK)
}

// triggerSync asks the sync job for a manual cycle. The request never waits
// for the cycle itself.
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	result := h.services.SyncJob.Trigger(models.TriggerManual)

	status, ok := triggerStatus[result]
	if !ok {
		status = http.StatusInternalServerError
	}
	logger.FromRequest(r).Debug().
		Str("func", "*Handler.triggerSync").
		Str("result", string(result)).
		Msg("manual sync requested")

	utils.WriteJSON(w, triggerResponse{Result: result}, status)
}

// streamStatus upgrades to a websocket and pushes the current status followed
// by every change until the client goes away or the daemon shuts down.
func (h *Handler) streamStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.streamStatus").Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	// the client never sends anything; CloseRead cancels ctx once it hangs up
	ctx := conn.CloseRead(r.Context())

	updates, cancel := h.services.Status.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			conn.Close(websocket.StatusGoingAway, "daemon shutting down")
			return
		case status, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err = h.writeStatus(ctx, conn, status); err != nil {
				log.Debug().Err(err).Str("func", "*Handler.streamStatus").Msg("status stream closed")
				return
			}
		}
	}
}

func (h *Handler) writeStatus(ctx context.Context, conn *websocket.Conn, status models.Status) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, status)
}
