// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.ClientConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return &config.ClientConfig{
		App:          config.ClientApp{Scope: models.Scope{FacilityID: "fac-1", UserID: "nurse-1"}},
		Adapter:      config.ClientAdapter{Kind: config.AdapterMemory},
		Storage:      config.ClientStorage{DB: config.ClientDB{DSN: ":memory:", Driver: config.DriverModernc}},
		Server:       config.ClientServer{HTTPAddress: addr, ShutdownTimeout: time.Second},
		Workers:      config.ClientWorkers{SyncInterval: time.Hour},
		Connectivity: config.ClientConnectivity{Source: config.SourceAlways},
	}
}

func TestNewApp_InvalidRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Adapter = config.ClientAdapter{Kind: config.AdapterHTTP, HTTPAddress: "  "}

	_, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, logger.Nop())
	assert.Error(t, err)
}

func TestNewApp_UnknownConnectivitySource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Connectivity.Source = "carrier-pigeon"

	_, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, logger.Nop())
	assert.Error(t, err)
}

func TestApp_RunServesControlAPI(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewApp(context.Background(), cfg, models.NewAppBuildInfo("1.0.0", "", ""), logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	base := "http://" + cfg.Server.HTTPAddress
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var s models.Status
		return json.NewDecoder(resp.Body).Decode(&s) == nil && s.Connected && s.LastSyncAt > 0
	}, 3*time.Second, 20*time.Millisecond, "startup cycle runs once connected")

	resp, err := http.Post(base+"/api/records/patients", "application/json", strings.NewReader(`{"givenName":"Amara"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
