// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/looplab/fsm"
)

// State machine events.
const (
	eventStartUpload   = "start_upload"
	eventStartDownload = "start_download"
	eventStartResolve  = "start_resolve"
	eventComplete      = "complete"
	eventFail          = "fail"
	eventReset         = "reset"
)

// SyncOptions tunes the orchestrator.
type SyncOptions struct {
	BatchSize               int
	MaxRetries              int
	Policy                  models.ConflictPolicy
	TombstoneRetention      time.Duration
	BackoffInitial          time.Duration
	BackoffMax              time.Duration
	MaxConsecutiveTransient int
}

// NewSyncOptions copies the sync section of the daemon config.
func NewSyncOptions(cfg config.ClientSync) SyncOptions {
	return SyncOptions{
		BatchSize:               cfg.BatchSize,
		MaxRetries:              cfg.MaxRetries,
		Policy:                  cfg.ConflictPolicy,
		TombstoneRetention:      cfg.TombstoneRetention,
		BackoffInitial:          cfg.BackoffInitial,
		BackoffMax:              cfg.BackoffMax,
		MaxConsecutiveTransient: cfg.MaxConsecutiveTransient,
	}
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.Policy == "" {
		o.Policy = models.PolicyManual
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 2 * time.Second
	}
	if o.BackoffMax < o.BackoffInitial {
		o.BackoffMax = max(o.BackoffInitial, 5*time.Minute)
	}
	if o.TombstoneRetention < 0 {
		o.TombstoneRetention = 0
	}
	return o
}

// cycle carries the state of one run.
type cycle struct {
	reason models.TriggerReason
	start  int64
	since  int64
	scope  models.Scope
	refs   storeRefs

	// warning is the last upload rejection of the cycle, surfaced in the
	// status even when the cycle succeeds.
	warning string
}

type syncOrchestrator struct {
	storages *store.ClientStorages
	remote   adapter.RemoteAPI
	format   *format.Adapter
	opts     SyncOptions
	status   *StatusPublisher
	metrics  *metrics.Metrics
	clock    utils.Clock
	logger   *logger.Logger

	scopeMu sync.RWMutex
	scope   models.Scope

	running atomic.Bool
	machine *fsm.FSM
}

// NewSyncOrchestrator wires the sync state machine. status and m may be
// shared with other services; m may be nil.
func NewSyncOrchestrator(
	storages *store.ClientStorages,
	remote adapter.RemoteAPI,
	f *format.Adapter,
	scope models.Scope,
	opts SyncOptions,
	status *StatusPublisher,
	m *metrics.Metrics,
	clock utils.Clock,
	logger *logger.Logger,
) SyncOrchestrator {
	o := &syncOrchestrator{
		storages: storages,
		remote:   remote,
		format:   f,
		opts:     opts.withDefaults(),
		status:   status,
		metrics:  m,
		clock:    clock,
		logger:   logger,
		scope:    scope,
	}

	idle := string(models.PhaseIdle)
	uploading := string(models.PhaseUploading)
	downloading := string(models.PhaseDownloading)
	resolving := string(models.PhaseResolvingConflicts)
	failed := string(models.PhaseFailed)

	o.machine = fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: eventStartUpload, Src: []string{idle, failed}, Dst: uploading},
			{Name: eventStartDownload, Src: []string{uploading}, Dst: downloading},
			{Name: eventStartResolve, Src: []string{downloading}, Dst: resolving},
			{Name: eventComplete, Src: []string{resolving}, Dst: idle},
			{Name: eventFail, Src: []string{uploading, downloading, resolving}, Dst: failed},
			{Name: eventReset, Src: []string{failed}, Dst: idle},
		},
		fsm.Callbacks{
			// Current() must not be called from callbacks; e.Dst is the new state.
			"enter_state": func(_ context.Context, e *fsm.Event) {
				phase := models.Phase(e.Dst)
				o.status.Update(func(s *models.Status) { s.Phase = phase })
			},
		},
	)

	return o
}

func (o *syncOrchestrator) Running() bool {
	return o.running.Load()
}

func (o *syncOrchestrator) Phase() models.Phase {
	return models.Phase(o.machine.Current())
}

func (o *syncOrchestrator) SetScope(scope models.Scope) {
	o.scopeMu.Lock()
	defer o.scopeMu.Unlock()
	o.scope = scope
}

func (o *syncOrchestrator) currentScope() models.Scope {
	o.scopeMu.RLock()
	defer o.scopeMu.RUnlock()
	return o.scope
}

func (o *syncOrchestrator) fire(ctx context.Context, event string) error {
	return o.machine.Event(context.WithoutCancel(ctx), event)
}

// RunCycle implements [SyncOrchestrator].
func (o *syncOrchestrator) RunCycle(ctx context.Context, reason models.TriggerReason) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrCycleInProgress
	}
	defer o.running.Store(false)

	started := o.clock.Now()
	c := &cycle{
		reason: reason,
		start:  started.UnixMilli(),
		scope:  o.currentScope(),
		refs:   newStoreRefs(o.storages.Records),
	}

	o.logger.Info().
		Str("reason", string(reason)).
		Str("policy", string(o.opts.Policy)).
		Msg("sync cycle started")

	err := o.runPhases(ctx, c)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailed
		o.failCycle(ctx, c, err)
	} else {
		o.status.Update(func(s *models.Status) {
			s.LastSyncAt = c.start
			s.LastError = c.warning
		})
		o.logger.Info().
			Str("reason", string(reason)).
			Int64("checkpoint", c.start).
			Msg("sync cycle finished")
	}

	o.metrics.ObserveCycle(outcome, o.clock.Now().Sub(started))
	o.RefreshStatus(ctx)
	return err
}

func (o *syncOrchestrator) runPhases(ctx context.Context, c *cycle) error {
	if err := o.fire(ctx, eventStartUpload); err != nil {
		return fmt.Errorf("enter upload phase: %w", err)
	}

	checkpoint, err := o.storages.Checkpoint.Get(ctx)
	if err != nil {
		return storageErr("read checkpoint", err)
	}
	c.since = checkpoint.LastSyncAt

	requeued, err := o.storages.Queue.RequeueInFlight(ctx)
	if err != nil {
		return storageErr("requeue in-flight entries", err)
	}
	if requeued > 0 {
		o.logger.Warn().Int64("entries", requeued).Msg("requeued entries left in flight by an interrupted cycle")
	}

	if err = o.requeueDirty(ctx); err != nil {
		return err
	}
	// Entries swept in above belong to this cycle.
	c.start = max(c.start, o.clock.NowMillis())

	if err = o.upload(ctx, c); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if err = o.fire(ctx, eventStartDownload); err != nil {
		return fmt.Errorf("enter download phase: %w", err)
	}
	if err = o.download(ctx, c); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err = o.fire(ctx, eventStartResolve); err != nil {
		return fmt.Errorf("enter resolve phase: %w", err)
	}
	if err = o.resolvePending(ctx, c); err != nil {
		return fmt.Errorf("resolve conflicts: %w", err)
	}
	if err = o.purgeTombstones(ctx, c); err != nil {
		return err
	}

	if err = o.storages.Checkpoint.Save(ctx, c.start); err != nil {
		return storageErr("save checkpoint", err)
	}

	return o.fire(ctx, eventComplete)
}

// failCycle passes the machine through failed back to idle. The cause
// stays in the status until a cycle succeeds; the checkpoint stays where the
// last successful cycle left it.
func (o *syncOrchestrator) failCycle(ctx context.Context, c *cycle, cause error) {
	if err := o.fire(ctx, eventFail); err != nil {
		o.logger.Debug().Err(err).Msg("fail event not applicable")
	}
	o.status.Update(func(s *models.Status) { s.LastError = cause.Error() })
	if err := o.fire(ctx, eventReset); err != nil {
		o.logger.Debug().Err(err).Msg("reset event not applicable")
	}

	o.logger.Err(cause).
		Str("func", "syncOrchestrator.RunCycle").
		Str("reason", string(c.reason)).
		Int64("checkpoint", c.since).
		Msg("sync cycle failed")
}

// RefreshStatus implements [SyncOrchestrator].
func (o *syncOrchestrator) RefreshStatus(ctx context.Context) {
	pending, err := o.storages.Queue.CountPending(ctx)
	if err != nil {
		o.logger.Err(err).Str("func", "syncOrchestrator.RefreshStatus").Msg("failed to count pending entries")
		return
	}
	failed, err := o.storages.Queue.CountFailed(ctx)
	if err != nil {
		o.logger.Err(err).Str("func", "syncOrchestrator.RefreshStatus").Msg("failed to count failed entries")
		return
	}
	conflicts, err := o.storages.Conflicts.CountUnresolved(ctx)
	if err != nil {
		o.logger.Err(err).Str("func", "syncOrchestrator.RefreshStatus").Msg("failed to count conflicts")
		return
	}

	o.status.Update(func(s *models.Status) {
		s.PendingCount = pending
		s.FailedCount = failed
		s.ConflictCount = conflicts
	})
	o.metrics.SetBacklog(pending, failed, conflicts)
}

// resolvePending settles conflicts still unresolved under an automatic
// policy, e.g. ones raised by the upload phase or left over from a period
// of manual resolution. Conflicts whose remote state is unknown wait for a
// download to fill it in.
func (o *syncOrchestrator) resolvePending(ctx context.Context, c *cycle) error {
	if o.opts.Policy == models.PolicyManual {
		return nil
	}

	conflicts, err := o.storages.Conflicts.ListUnresolved(ctx)
	if err != nil {
		return storageErr("list unresolved conflicts", err)
	}

	for _, conflict := range conflicts {
		if !conflict.RemoteSnapshot.Complete() {
			continue
		}

		var resolution models.Resolution
		err = o.inTx(ctx, "resolve conflict", func(tx *store.ClientStorages) error {
			local, err := tx.Records.Get(ctx, conflict.EntityType, conflict.EntityID)
			if errors.Is(err, store.ErrRecordNotFound) {
				resolution = models.ResolutionKeepRemote
				_, err = tx.Conflicts.MarkResolved(ctx, conflict.ID, resolution)
				return err
			}
			if err != nil {
				return err
			}

			resolution = decide(o.opts.Policy, local, conflict.RemoteSnapshot)
			_, err = applyResolution(ctx, tx, o.format, conflict, resolution, nil)
			return err
		})
		if err != nil {
			return err
		}

		o.metrics.ObserveConflict(string(o.opts.Policy), string(resolution))
		o.logger.Info().
			Str("conflict_id", conflict.ID).
			Str("entity_type", conflict.EntityType.String()).
			Str("resolution", string(resolution)).
			Msg("conflict resolved by policy")
	}
	return nil
}

func (o *syncOrchestrator) purgeTombstones(ctx context.Context, c *cycle) error {
	before := c.start - o.opts.TombstoneRetention.Milliseconds()
	for _, t := range o.format.DependencyOrder() {
		n, err := o.storages.Records.PurgeTombstones(ctx, t, before)
		if err != nil {
			return storageErr("purge tombstones", err)
		}
		if n > 0 {
			o.logger.Debug().Str("entity_type", t.String()).Int64("purged", n).Msg("tombstones purged")
		}
	}
	return nil
}

func (o *syncOrchestrator) inTx(ctx context.Context, op string, fn func(tx *store.ClientStorages) error) error {
	if err := o.storages.InTx(ctx, fn); err != nil {
		return storageErr(op, err)
	}
	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// retryDelay is the wait before the given attempt of a queue entry.
func retryDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := initial
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return max(d, time.Millisecond)
}
