// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/adapter"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/metrics"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/internal/validators"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/require"
)

var (
	testEpoch = time.UnixMilli(1_760_000_000_000)
	testScope = models.Scope{FacilityID: "fac-1", UserID: "nurse-1"}
)

// testEnv is a daemon wired to an in-memory database and a fake clock.
type testEnv struct {
	db           *store.DB
	storages     *store.ClientStorages
	remote       *adapter.MemoryRemote
	clock        utils.Clock
	now          *time.Time
	status       *StatusPublisher
	orchestrator SyncOrchestrator
	records      RecordService
	conflicts    ConflictService
	queue        QueueService
}

func newTestEnv(t *testing.T, opts SyncOptions) *testEnv {
	t.Helper()

	env := newTestEnvWithRemote(t, nil, opts)
	return env
}

// newTestEnvWithRemote wires remote instead of a MemoryRemote when it is
// not nil.
func newTestEnvWithRemote(t *testing.T, remote adapter.RemoteAPI, opts SyncOptions) *testEnv {
	t.Helper()

	clock, now := utils.FixedClock(testEpoch)
	db, err := store.NewConnectSQLite(context.Background(), config.ClientDB{DSN: ":memory:", Driver: config.DriverModernc}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	storages := store.NewClientStoragesFromDB(db, clock, logger.Nop())
	env := &testEnv{db: db, storages: storages, clock: clock, now: now, status: NewStatusPublisher()}
	if remote == nil {
		env.remote = adapter.NewMemoryRemote(clock)
		remote = env.remote
	}

	f := format.NewDefaultAdapter()
	validator := validators.NewRecordValidator()
	m := metrics.New()

	env.orchestrator = NewSyncOrchestrator(storages, remote, f, testScope, opts, env.status, m, clock, logger.Nop())
	env.records = NewRecordService(storages, f, validator, env.orchestrator.RefreshStatus, logger.Nop())
	env.conflicts = NewConflictService(storages, f, validator, m, env.orchestrator.RefreshStatus, logger.Nop())
	env.queue = NewQueueService(storages.Queue, env.orchestrator.RefreshStatus)
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.now = e.now.Add(d)
}

func (e *testEnv) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, e.orchestrator.RunCycle(context.Background(), models.TriggerManual))
}

func (e *testEnv) checkpoint(t *testing.T) int64 {
	t.Helper()
	cp, err := e.storages.Checkpoint.Get(context.Background())
	require.NoError(t, err)
	return cp.LastSyncAt
}
