// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// daemon. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, an optional JSON
// file and finally the built-in defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds identity and logging settings.
	App App `envPrefix:"APP_"`

	// Storage holds the local database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the local control API settings.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the remote service settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds background worker settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds queue drain and conflict handling settings.
	Sync Sync `envPrefix:"SYNC_"`

	// Connectivity selects where the online/offline signal comes from.
	Connectivity Connectivity `envPrefix:"CONNECTIVITY_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds identity, integrity and logging settings.
type App struct {
	// HashKey is the HMAC key used to sign request bodies sent to the
	// remote service (HashSHA256 header). Empty disables signing.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// FacilityID scopes every remote call to one facility.
	// Env: APP_FACILITY_ID
	FacilityID string `env:"FACILITY_ID"`

	// UserID identifies the operator on whose behalf the engine syncs.
	// Env: APP_USER_ID
	UserID string `env:"USER_ID"`

	// Token is the bearer token sent to the remote service.
	// Env: APP_TOKEN
	Token string `env:"TOKEN"`

	// LogLevel is a zerolog level name.
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// LogFile redirects logs to a file instead of stdout.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Storage groups the configuration for the local store.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is a file path or SQLite URI (e.g. "file:sync.db?_busy_timeout=5000").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`

	// Driver selects the database/sql driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	// Env: STORAGE_DB_DRIVER
	Driver string `env:"DRIVER"`
}

// Server holds the local control API settings.
type Server struct {
	// HTTPAddress is the listen address of the control API
	// (e.g. "127.0.0.1:8787").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// ShutdownTimeout bounds graceful shutdown of the control API.
	// Env: SERVER_SHUTDOWN_TIMEOUT
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// Adapter holds the remote service settings.
type Adapter struct {
	// Kind selects the remote implementation: "http" or "memory".
	// Env: ADAPTER_KIND
	Kind string `env:"KIND"`

	// HTTPAddress is the base URL of the remote service
	// (e.g. "https://registry.example.org").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval is the period of timer-triggered sync cycles.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Sync holds queue drain and conflict handling settings.
type Sync struct {
	// BatchSize is the number of queue entries taken per drain step.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxRetries is the number of transient failures after which an entry
	// is marked permanently failed.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// ConflictPolicy is one of "manual", "local", "remote", "timestamp".
	// Env: SYNC_CONFLICT_POLICY
	ConflictPolicy string `env:"CONFLICT_POLICY"`

	// TombstoneRetention keeps acknowledged tombstones for this long.
	// Zero purges them as soon as the remote delete is confirmed.
	// Env: SYNC_TOMBSTONE_RETENTION
	TombstoneRetention time.Duration `env:"TOMBSTONE_RETENTION"`

	// BackoffInitial is the first retry delay of a failed queue entry.
	// Env: SYNC_BACKOFF_INITIAL
	BackoffInitial time.Duration `env:"BACKOFF_INITIAL"`

	// BackoffMax caps the retry delay.
	// Env: SYNC_BACKOFF_MAX
	BackoffMax time.Duration `env:"BACKOFF_MAX"`

	// MaxConsecutiveTransient aborts the upload phase after this many
	// transient failures in a row.
	// Env: SYNC_MAX_CONSECUTIVE_TRANSIENT
	MaxConsecutiveTransient int `env:"MAX_CONSECUTIVE_TRANSIENT"`
}

// Connectivity selects where the online/offline signal comes from.
type Connectivity struct {
	// Source is one of "always", "file" or "probe".
	// Env: CONNECTIVITY_SOURCE
	Source string `env:"SOURCE"`

	// StateFile is watched by the "file" source. It contains "online" or
	// "offline".
	// Env: CONNECTIVITY_STATE_FILE
	StateFile string `env:"STATE_FILE"`

	// ProbeInterval is the health check period of the "probe" source.
	// Env: CONNECTIVITY_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// GetStructuredConfig loads and merges the daemon configuration from all
// available sources. For every field the first source with a non-zero
// value wins, in this order:
//  1. Environment variables
//  2. Command-line flags (parsed from args)
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		withDefaults().
		build()
}
