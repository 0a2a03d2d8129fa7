// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/cenkalti/backoff/v4"
)

const defaultSyncInterval = 30 * time.Second

type syncJob struct {
	orchestrator SyncOrchestrator
	monitor      *connectivity.Monitor
	status       *StatusPublisher
	retryInitial time.Duration
	retryMax     time.Duration
	logger       *logger.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	triggers chan models.TriggerReason
	wg       sync.WaitGroup
}

// NewSyncJob creates a job that runs orchestrator on a ticker, on reconnect
// and on request. After a failed cycle it retries with exponential backoff
// between retryInitial and retryMax. The job is idle until Start is called.
func NewSyncJob(orchestrator SyncOrchestrator, monitor *connectivity.Monitor, status *StatusPublisher, retryInitial, retryMax time.Duration, logger *logger.Logger) SyncJob {
	if retryInitial <= 0 {
		retryInitial = 2 * time.Second
	}
	if retryMax < retryInitial {
		retryMax = max(retryInitial, 5*time.Minute)
	}
	return &syncJob{
		orchestrator: orchestrator,
		monitor:      monitor,
		status:       status,
		retryInitial: retryInitial,
		retryMax:     retryMax,
		logger:       logger,
	}
}

// Start implements SyncJob.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	triggers := make(chan models.TriggerReason, 1)
	j.triggers = triggers
	events, unsubscribe := j.monitor.Subscribe()
	j.wg.Add(1)
	j.mu.Unlock()

	j.setConnected(j.monitor.IsConnected())

	go func() {
		defer j.wg.Done()
		defer unsubscribe()
		j.loop(jobCtx, interval, triggers, events)
	}()
}

func (j *syncJob) loop(ctx context.Context, interval time.Duration, triggers <-chan models.TriggerReason, events <-chan connectivity.Event) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = j.retryInitial
	retry.MaxInterval = j.retryMax
	retry.MaxElapsedTime = 0
	retry.Reset()

	var retryTimer *time.Timer
	var retryC <-chan time.Time
	defer func() {
		if retryTimer != nil {
			retryTimer.Stop()
		}
	}()

	run := func(reason models.TriggerReason) {
		if !j.monitor.IsConnected() {
			j.logger.Debug().Str("reason", string(reason)).Msg("offline, sync cycle skipped")
			return
		}

		err := j.orchestrator.RunCycle(ctx, reason)
		switch {
		case err == nil:
			retry.Reset()
			if retryTimer != nil {
				retryTimer.Stop()
			}
			retryC = nil
		case errors.Is(err, ErrCycleInProgress), ctx.Err() != nil:
		default:
			if retryTimer != nil {
				retryTimer.Stop()
			}
			delay := retry.NextBackOff()
			retryTimer = time.NewTimer(delay)
			retryC = retryTimer.C
			j.logger.Info().Dur("retry_in", delay).Msg("sync cycle will be retried")
		}
	}

	run(models.TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(models.TriggerTimer)
		case reason := <-triggers:
			run(reason)
		case <-retryC:
			retryC = nil
			run(models.TriggerRetry)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			j.setConnected(ev.Connected)
			if ev.Reconnected() {
				run(models.TriggerReconnect)
			}
		}
	}
}

func (j *syncJob) setConnected(connected bool) {
	j.status.Update(func(s *models.Status) { s.Connected = connected })
}

// Trigger implements SyncJob.
func (j *syncJob) Trigger(reason models.TriggerReason) models.TriggerResult {
	j.mu.Lock()
	triggers := j.triggers
	j.mu.Unlock()

	switch {
	case triggers == nil:
		return models.TriggerNotRunning
	case !j.monitor.IsConnected():
		return models.TriggerOffline
	case j.orchestrator.Running():
		return models.TriggerBusy
	}

	select {
	case triggers <- reason:
		return models.TriggerAccepted
	default:
		return models.TriggerBusy
	}
}

// Stop implements SyncJob. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.triggers = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
