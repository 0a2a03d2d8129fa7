// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetAddress_String(t *testing.T) {
	tests := []struct {
		name     string
		addr     NetAddress
		expected string
	}{
		{name: "empty address", addr: NetAddress{}, expected: ""},
		{name: "localhost with port", addr: NetAddress{Host: "localhost", Port: 8787}, expected: "localhost:8787"},
		{name: "IP address with port", addr: NetAddress{Host: "127.0.0.1", Port: 9090}, expected: "127.0.0.1:9090"},
		{name: "only port no host", addr: NetAddress{Host: "", Port: 8080}, expected: ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.addr.String())
		})
	}
}

func TestNetAddress_Set(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		host        string
		port        int
	}{
		{name: "localhost", input: "localhost:8787", host: "localhost", port: 8787},
		{name: "ipv4", input: "127.0.0.1:9000", host: "127.0.0.1", port: 9000},
		{name: "missing port", input: "localhost", expectError: true},
		{name: "non numeric port", input: "localhost:http", expectError: true},
		{name: "zero port", input: "localhost:0", expectError: true},
		{name: "hostname", input: "example.org:80", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a NetAddress
			err := a.Set(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, a.Host)
			assert.Equal(t, tt.port, a.Port)
		})
	}
}

func TestParseFlags_AllGroups(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-a", "127.0.0.1:9999",
		"-d", "/var/lib/sync.db",
		"-driver", "sqlite",
		"-hash-key", "k",
		"-token", "tok",
		"-remote-address", "http://registry",
		"-request-timeout", "3s",
		"-batch-size", "25",
		"-max-retries", "9",
		"-tombstone-retention", "1h",
		"-connectivity", "probe",
		"-probe-interval", "2s",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.HTTPAddress)
	assert.Equal(t, "/var/lib/sync.db", cfg.Storage.DB.DSN)
	assert.Equal(t, DriverModernc, cfg.Storage.DB.Driver)
	assert.Equal(t, "k", cfg.App.HashKey)
	assert.Equal(t, "tok", cfg.App.Token)
	assert.Equal(t, "http://registry", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 3*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 9, cfg.Sync.MaxRetries)
	assert.Equal(t, time.Hour, cfg.Sync.TombstoneRetention)
	assert.Equal(t, SourceProbe, cfg.Connectivity.Source)
	assert.Equal(t, 2*time.Second, cfg.Connectivity.ProbeInterval)
}

func TestParseFlags_Empty(t *testing.T) {
	cfg, err := ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestParseFlags_BadAddress(t *testing.T) {
	_, err := ParseFlags([]string{"-a", "nowhere"})
	assert.Error(t, err)
}
