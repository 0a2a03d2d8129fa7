// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: empty dsn", ErrInvalidStorageConfigs)
	}
	if cfg.Storage.DB.Driver != DriverMattn && cfg.Storage.DB.Driver != DriverModernc {
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidStorageConfigs, cfg.Storage.DB.Driver)
	}

	switch cfg.Adapter.Kind {
	case AdapterHTTP:
		if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
			return fmt.Errorf("%w: http remote needs an address and a timeout", ErrInvalidAdapterConfigs)
		}
	case AdapterMemory:
	default:
		return fmt.Errorf("%w: unknown remote kind %q", ErrInvalidAdapterConfigs, cfg.Adapter.Kind)
	}

	if cfg.Server.HTTPAddress == "" {
		return fmt.Errorf("%w: empty control api address", ErrInvalidServerConfigs)
	}

	if cfg.Workers.SyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Sync.BatchSize <= 0 || cfg.Sync.MaxRetries <= 0 || cfg.Sync.MaxConsecutiveTransient <= 0 {
		return fmt.Errorf("%w: batch size, retries and transient limit must be positive", ErrInvalidSyncConfigs)
	}
	if cfg.Sync.TombstoneRetention < 0 {
		return fmt.Errorf("%w: negative tombstone retention", ErrInvalidSyncConfigs)
	}
	if cfg.Sync.BackoffInitial <= 0 || cfg.Sync.BackoffMax < cfg.Sync.BackoffInitial {
		return fmt.Errorf("%w: backoff bounds", ErrInvalidSyncConfigs)
	}

	switch cfg.Connectivity.Source {
	case SourceAlways:
	case SourceFile:
		if cfg.Connectivity.StateFile == "" {
			return fmt.Errorf("%w: file source needs a state file", ErrInvalidConnectivityConfigs)
		}
	case SourceProbe:
		if cfg.Adapter.Kind != AdapterHTTP || cfg.Connectivity.ProbeInterval <= 0 {
			return fmt.Errorf("%w: probe source needs an http remote and an interval", ErrInvalidConnectivityConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConnectivityConfigs, cfg.Connectivity.Source)
	}

	return nil
}
