// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// ClientApp holds identity and logging settings.
type ClientApp struct {
	// HashKey is the HMAC key used to sign request bodies.
	HashKey string
	// LogLevel is a zerolog level name.
	LogLevel string
	// LogFile redirects logs to a file when set.
	LogFile string
	// Scope is passed to every remote call.
	Scope models.Scope
}

// ClientAdapter holds remote service settings.
type ClientAdapter struct {
	// Kind is AdapterHTTP or AdapterMemory.
	Kind string
	// HTTPAddress is the remote base URL.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite connection string or file path.
	DSN string
	// Driver is DriverMattn or DriverModernc.
	Driver string
}

// ClientStorage groups local storage settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientServer holds the control API settings.
type ClientServer struct {
	HTTPAddress     string
	ShutdownTimeout time.Duration
}

// ClientWorkers contains background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often timer-triggered cycles run.
	SyncInterval time.Duration
}

// ClientSync holds queue drain and conflict settings.
type ClientSync struct {
	BatchSize               int
	MaxRetries              int
	ConflictPolicy          models.ConflictPolicy
	TombstoneRetention      time.Duration
	BackoffInitial          time.Duration
	BackoffMax              time.Duration
	MaxConsecutiveTransient int
}

// ClientConnectivity selects the online/offline signal.
type ClientConnectivity struct {
	Source        string
	StateFile     string
	ProbeInterval time.Duration
}

// ClientConfig is the validated runtime configuration of the sync daemon,
// assembled from [StructuredConfig].
type ClientConfig struct {
	App          ClientApp
	Adapter      ClientAdapter
	Storage      ClientStorage
	Server       ClientServer
	Workers      ClientWorkers
	Sync         ClientSync
	Connectivity ClientConnectivity
}

// GetClientConfig builds and validates the daemon config from env, args,
// the optional JSON file and defaults.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return NewClientConfig(cfg)
}

// NewClientConfig maps a merged StructuredConfig onto the runtime view and
// validates it.
func NewClientConfig(cfg *StructuredConfig) (*ClientConfig, error) {
	policy, err := models.ParseConflictPolicy(cfg.Sync.ConflictPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			HashKey:  cfg.App.HashKey,
			LogLevel: cfg.App.LogLevel,
			LogFile:  cfg.App.LogFile,
			Scope: models.Scope{
				FacilityID: cfg.App.FacilityID,
				UserID:     cfg.App.UserID,
				Token:      cfg.App.Token,
			},
		},
		Adapter: ClientAdapter{
			Kind:           cfg.Adapter.Kind,
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN:    cfg.Storage.DB.DSN,
				Driver: cfg.Storage.DB.Driver,
			},
		},
		Server: ClientServer{
			HTTPAddress:     cfg.Server.HTTPAddress,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		Workers: ClientWorkers{SyncInterval: cfg.Workers.SyncInterval},
		Sync: ClientSync{
			BatchSize:               cfg.Sync.BatchSize,
			MaxRetries:              cfg.Sync.MaxRetries,
			ConflictPolicy:          policy,
			TombstoneRetention:      cfg.Sync.TombstoneRetention,
			BackoffInitial:          cfg.Sync.BackoffInitial,
			BackoffMax:              cfg.Sync.BackoffMax,
			MaxConsecutiveTransient: cfg.Sync.MaxConsecutiveTransient,
		},
		Connectivity: ClientConnectivity{
			Source:        cfg.Connectivity.Source,
			StateFile:     cfg.Connectivity.StateFile,
			ProbeInterval: cfg.Connectivity.ProbeInterval,
		},
	}

	return clientCfg, clientCfg.validate()
}
