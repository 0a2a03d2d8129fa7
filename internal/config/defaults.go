// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"

	AdapterHTTP   = "http"
	AdapterMemory = "memory"

	SourceAlways = "always"
	SourceFile   = "file"
	SourceProbe  = "probe"
)

func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			LogLevel: "info",
		},
		Storage: Storage{
			DB: DB{
				DSN:    "sync-keeper.db",
				Driver: DriverMattn,
			},
		},
		Server: Server{
			HTTPAddress:     "127.0.0.1:8787",
			ShutdownTimeout: 5 * time.Second,
		},
		Adapter: Adapter{
			Kind:           AdapterHTTP,
			RequestTimeout: 15 * time.Second,
		},
		Workers: Workers{
			SyncInterval: 30 * time.Second,
		},
		Sync: Sync{
			BatchSize:               50,
			MaxRetries:              5,
			ConflictPolicy:          "manual",
			BackoffInitial:          2 * time.Second,
			BackoffMax:              5 * time.Minute,
			MaxConsecutiveTransient: 3,
		},
		Connectivity: Connectivity{
			Source:        SourceAlways,
			ProbeInterval: 15 * time.Second,
		},
	}
}
