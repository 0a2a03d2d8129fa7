// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/connectivity"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyOrchestrator records cycle requests and lets a test hold a cycle open.
type spyOrchestrator struct {
	mu      sync.Mutex
	reasons []models.TriggerReason
	err     error
	block   chan struct{}
	running atomic.Bool
}

func (s *spyOrchestrator) RunCycle(ctx context.Context, reason models.TriggerReason) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.mu.Lock()
	s.reasons = append(s.reasons, reason)
	block, err := s.block, s.err
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *spyOrchestrator) Running() bool { return s.running.Load() }

func (s *spyOrchestrator) Phase() models.Phase { return models.PhaseIdle }

func (s *spyOrchestrator) RefreshStatus(_ context.Context) {}

func (s *spyOrchestrator) SetScope(_ models.Scope) {}

func (s *spyOrchestrator) calls() []models.TriggerReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TriggerReason(nil), s.reasons...)
}

func (s *spyOrchestrator) count(reason models.TriggerReason) int {
	n := 0
	for _, r := range s.calls() {
		if r == reason {
			n++
		}
	}
	return n
}

func newJob(spy *spyOrchestrator, connected bool) (SyncJob, *connectivity.Monitor, *StatusPublisher) {
	monitor := connectivity.NewMonitor(connected, nil, logger.Nop())
	status := NewStatusPublisher()
	job := NewSyncJob(spy, monitor, status, 10*time.Millisecond, 50*time.Millisecond, logger.Nop())
	return job, monitor, status
}

// ── Start / Stop ─────────────────────────────────────────────────────────────

func TestSyncJob_StartRunsStartupCycle(t *testing.T) {
	spy := &spyOrchestrator{}
	job, _, status := newJob(spy, true)

	job.Start(context.Background(), time.Hour)
	defer job.Stop()

	require.Eventually(t, func() bool { return spy.count(models.TriggerStartup) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, status.Snapshot().Connected)
}

func TestSyncJob_TimerCycles(t *testing.T) {
	spy := &spyOrchestrator{}
	job, _, _ := newJob(spy, true)

	job.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return spy.count(models.TriggerTimer) >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()

	callsAfterStop := len(spy.calls())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, callsAfterStop, len(spy.calls()), "no cycles after Stop")
}

func TestSyncJob_OfflineSkipsCyclesUntilReconnect(t *testing.T) {
	spy := &spyOrchestrator{}
	job, monitor, status := newJob(spy, false)

	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, spy.calls())
	assert.Equal(t, models.TriggerOffline, job.Trigger(models.TriggerManual))
	assert.False(t, status.Snapshot().Connected)

	monitor.Set(true)

	require.Eventually(t, func() bool { return spy.count(models.TriggerReconnect) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return status.Snapshot().Connected }, time.Second, 5*time.Millisecond)
}

func TestSyncJob_StopBeforeStart_NoPanic(t *testing.T) {
	job, _, _ := newJob(&spyOrchestrator{}, true)

	assert.NotPanics(t, func() { job.Stop() })
	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_StopCancelsRunningCycle(t *testing.T) {
	spy := &spyOrchestrator{block: make(chan struct{})}
	job, _, _ := newJob(spy, true)

	job.Start(context.Background(), time.Hour)
	require.Eventually(t, spy.Running, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

// ── Trigger ──────────────────────────────────────────────────────────────────

func TestSyncJob_Trigger(t *testing.T) {
	spy := &spyOrchestrator{}
	job, _, _ := newJob(spy, true)

	assert.Equal(t, models.TriggerNotRunning, job.Trigger(models.TriggerManual))

	job.Start(context.Background(), time.Hour)
	require.Eventually(t, func() bool {
		return spy.count(models.TriggerStartup) == 1 && !spy.Running()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.TriggerAccepted, job.Trigger(models.TriggerManual))
	require.Eventually(t, func() bool { return spy.count(models.TriggerManual) == 1 }, time.Second, 5*time.Millisecond)

	job.Stop()
	assert.Equal(t, models.TriggerNotRunning, job.Trigger(models.TriggerManual))
}

func TestSyncJob_TriggerWhileRunningIsBusy(t *testing.T) {
	spy := &spyOrchestrator{block: make(chan struct{})}
	job, _, _ := newJob(spy, true)

	job.Start(context.Background(), time.Hour)
	defer job.Stop()
	require.Eventually(t, spy.Running, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.TriggerBusy, job.Trigger(models.TriggerManual))

	close(spy.block)
	require.Eventually(t, func() bool { return !spy.Running() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, spy.count(models.TriggerManual), "busy triggers are not queued")
}

func TestSyncJob_FailedCycleIsRetried(t *testing.T) {
	spy := &spyOrchestrator{err: errors.New("remote down")}
	job, _, _ := newJob(spy, true)

	job.Start(context.Background(), time.Hour)
	defer job.Stop()

	require.Eventually(t, func() bool { return spy.count(models.TriggerRetry) >= 2 }, 2*time.Second, 5*time.Millisecond)

	spy.mu.Lock()
	spy.err = nil
	spy.mu.Unlock()

	// After a successful retry no further retries are scheduled.
	require.Eventually(t, func() bool {
		calls := spy.calls()
		time.Sleep(120 * time.Millisecond)
		return len(spy.calls()) == len(calls)
	}, 2*time.Second, 10*time.Millisecond)
}
