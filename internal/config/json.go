// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the on-disk JSON shape. Durations accept either
// Go duration strings ("30s") or nanosecond numbers.
type StructuredJSONConfig struct {
	App struct {
		HashKey    string `json:"hash_key"`
		FacilityID string `json:"facility_id"`
		UserID     string `json:"user_id"`
		Token      string `json:"token"`
		LogLevel   string `json:"log_level"`
		LogFile    string `json:"log_file"`
	} `json:"app"`

	Storage struct {
		DB struct {
			DSN    string `json:"dsn"`
			Driver string `json:"driver"`
		} `json:"db"`
	} `json:"storage"`

	Server struct {
		HTTPAddress     string   `json:"http_address"`
		ShutdownTimeout Duration `json:"shutdown_timeout"`
	} `json:"server"`

	Adapter struct {
		Kind           string   `json:"kind"`
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter"`

	Workers struct {
		SyncInterval Duration `json:"sync_interval"`
	} `json:"workers"`

	Sync struct {
		BatchSize               int      `json:"batch_size"`
		MaxRetries              int      `json:"max_retries"`
		ConflictPolicy          string   `json:"conflict_policy"`
		TombstoneRetention      Duration `json:"tombstone_retention"`
		BackoffInitial          Duration `json:"backoff_initial"`
		BackoffMax              Duration `json:"backoff_max"`
		MaxConsecutiveTransient int      `json:"max_consecutive_transient"`
	} `json:"sync"`

	Connectivity struct {
		Source        string   `json:"source"`
		StateFile     string   `json:"state_file"`
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"connectivity"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			HashKey:    jsonCfg.App.HashKey,
			FacilityID: jsonCfg.App.FacilityID,
			UserID:     jsonCfg.App.UserID,
			Token:      jsonCfg.App.Token,
			LogLevel:   jsonCfg.App.LogLevel,
			LogFile:    jsonCfg.App.LogFile,
		},
		Storage: Storage{
			DB: DB{
				DSN:    jsonCfg.Storage.DB.DSN,
				Driver: jsonCfg.Storage.DB.Driver,
			},
		},
		Server: Server{
			HTTPAddress:     jsonCfg.Server.HTTPAddress,
			ShutdownTimeout: time.Duration(jsonCfg.Server.ShutdownTimeout),
		},
		Adapter: Adapter{
			Kind:           jsonCfg.Adapter.Kind,
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval: time.Duration(jsonCfg.Workers.SyncInterval),
		},
		Sync: Sync{
			BatchSize:               jsonCfg.Sync.BatchSize,
			MaxRetries:              jsonCfg.Sync.MaxRetries,
			ConflictPolicy:          jsonCfg.Sync.ConflictPolicy,
			TombstoneRetention:      time.Duration(jsonCfg.Sync.TombstoneRetention),
			BackoffInitial:          time.Duration(jsonCfg.Sync.BackoffInitial),
			BackoffMax:              time.Duration(jsonCfg.Sync.BackoffMax),
			MaxConsecutiveTransient: jsonCfg.Sync.MaxConsecutiveTransient,
		},
		Connectivity: Connectivity{
			Source:        jsonCfg.Connectivity.Source,
			StateFile:     jsonCfg.Connectivity.StateFile,
			ProbeInterval: time.Duration(jsonCfg.Connectivity.ProbeInterval),
		},
	}

	return cfg, nil
}

// Duration is a time.Duration that unmarshals from a duration string or a
// number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
