// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// CtlConfig configures the syncctl command line client. Flags given on the
// command line override these values.
type CtlConfig struct {
	// Address is the base URL of the daemon control API.
	// Env: SYNCCTL_ADDRESS
	Address string `env:"SYNCCTL_ADDRESS" envDefault:"http://127.0.0.1:8787"`

	// Timeout bounds each control API request.
	// Env: SYNCCTL_TIMEOUT
	Timeout time.Duration `env:"SYNCCTL_TIMEOUT" envDefault:"10s"`

	// HashKey signs request bodies. It must match the daemon's key.
	// Env: SYNCCTL_HASH_KEY
	HashKey string `env:"SYNCCTL_HASH_KEY"`
}

// GetCtlConfig reads the syncctl configuration from the environment.
func GetCtlConfig() (*CtlConfig, error) {
	cfg := &CtlConfig{}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("error get ctl config: %w", err)
	}
	return cfg, nil
}
