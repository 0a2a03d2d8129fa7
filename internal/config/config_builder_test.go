// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

// ── newConfigBuilder ──────────────────────────────────────────────────────────

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

// ── build ─────────────────────────────────────────────────────────────────────

func TestBuild_EmptyBuilder(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestBuild_FirstSourceWins verifies that an earlier source is not overridden
// by a later one, while gaps are filled.
func TestBuild_FirstSourceWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{App: App{FacilityID: "fac-env"}},
		&StructuredConfig{App: App{FacilityID: "fac-flag", UserID: "nurse-1"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "fac-env", cfg.App.FacilityID)
	assert.Equal(t, "nurse-1", cfg.App.UserID)
}

// ── withFlags / withJSON / withDefaults ──────────────────────────────────────

func TestWithFlags_InvalidFlag(t *testing.T) {
	b := newConfigBuilder().withFlags([]string{"-no-such-flag"})
	require.Error(t, b.err)
}

func TestWithJSON_PathFromFlags(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"app": map[string]any{"facility_id": "fac-json"},
	})

	cfg, err := newConfigBuilder().
		withFlags([]string{"-c", path}).
		withJSON().
		build()
	require.NoError(t, err)
	assert.Equal(t, "fac-json", cfg.App.FacilityID)
}

func TestWithJSON_MissingFile(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/does/not/exist.json"})

	_, err := b.withJSON().build()
	require.Error(t, err)
}

func TestWithJSON_NoPathIsNoop(t *testing.T) {
	b := newConfigBuilder().withJSON()
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestWithDefaults_FillsGaps(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Sync: Sync{BatchSize: 7}})

	cfg, err := b.withDefaults().build()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Sync.BatchSize)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Workers.SyncInterval)
	assert.Equal(t, DriverMattn, cfg.Storage.DB.Driver)
}

// ── GetClientConfig ───────────────────────────────────────────────────────────

func TestGetClientConfig_FlagsAndDefaults(t *testing.T) {
	cfg, err := GetClientConfig([]string{
		"-d", ":memory:",
		"-remote", "memory",
		"-facility", "fac-7",
		"-user", "nurse-3",
		"-conflict-policy", "timestamp",
		"-sync-interval", "5s",
	})
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Storage.DB.DSN)
	assert.Equal(t, AdapterMemory, cfg.Adapter.Kind)
	assert.Equal(t, models.Scope{FacilityID: "fac-7", UserID: "nurse-3"}, cfg.App.Scope)
	assert.Equal(t, models.PolicyTimestamp, cfg.Sync.ConflictPolicy)
	assert.Equal(t, 5*time.Second, cfg.Workers.SyncInterval)
	assert.Equal(t, 3, cfg.Sync.MaxConsecutiveTransient)
	assert.Equal(t, SourceAlways, cfg.Connectivity.Source)
}

func TestGetClientConfig_EnvBeatsFlags(t *testing.T) {
	t.Setenv("APP_FACILITY_ID", "fac-env")

	cfg, err := GetClientConfig([]string{"-remote", "memory", "-facility", "fac-flag"})
	require.NoError(t, err)
	assert.Equal(t, "fac-env", cfg.App.Scope.FacilityID)
}

func TestGetClientConfig_JSON(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"adapter": map[string]any{"kind": "memory"},
		"sync": map[string]any{
			"batch_size":          10,
			"tombstone_retention": "24h",
		},
		"connectivity": map[string]any{
			"source":     "file",
			"state_file": "/tmp/online",
		},
	})

	cfg, err := GetClientConfig([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Sync.TombstoneRetention)
	assert.Equal(t, SourceFile, cfg.Connectivity.Source)
	assert.Equal(t, "/tmp/online", cfg.Connectivity.StateFile)
}

func TestGetClientConfig_UnknownPolicy(t *testing.T) {
	_, err := GetClientConfig([]string{"-remote", "memory", "-conflict-policy", "coin-flip"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSyncConfigs)
}
