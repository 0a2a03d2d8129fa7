// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NetAddress is a flag.Value accepting "host:port" where host is an IP
// address or "localhost".
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses daemon flags from args (without the program name) on a
// fresh FlagSet, so it can be called repeatedly in tests.
func ParseFlags(args []string) (*StructuredConfig, error) {
	cfg := &StructuredConfig{}
	var controlAddress NetAddress

	fs := flag.NewFlagSet("syncd", flag.ContinueOnError)

	fs.Var(&controlAddress, "a", "Control API listen address host:port")
	fs.StringVar(&cfg.Storage.DB.DSN, "d", "", "Local database DSN or file path")
	fs.StringVar(&cfg.Storage.DB.Driver, "driver", "", "SQLite driver: sqlite3 or sqlite")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	fs.StringVar(&cfg.App.HashKey, "hash-key", "", "HMAC key for request signing")
	fs.StringVar(&cfg.App.FacilityID, "facility", "", "Facility id")
	fs.StringVar(&cfg.App.UserID, "user", "", "User id")
	fs.StringVar(&cfg.App.Token, "token", "", "Bearer token for the remote service")
	fs.StringVar(&cfg.App.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.App.LogFile, "log-file", "", "Write logs to this file")

	fs.StringVar(&cfg.Adapter.Kind, "remote", "", "Remote implementation: http or memory")
	fs.StringVar(&cfg.Adapter.HTTPAddress, "remote-address", "", "Remote service base URL")
	fs.DurationVar(&cfg.Adapter.RequestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 15s)")

	fs.DurationVar(&cfg.Workers.SyncInterval, "sync-interval", 0, "Timer-triggered sync period (e.g., 30s)")

	fs.IntVar(&cfg.Sync.BatchSize, "batch-size", 0, "Queue entries per drain step")
	fs.IntVar(&cfg.Sync.MaxRetries, "max-retries", 0, "Transient failures before an entry fails permanently")
	fs.StringVar(&cfg.Sync.ConflictPolicy, "conflict-policy", "", "manual, local, remote or timestamp")
	fs.DurationVar(&cfg.Sync.TombstoneRetention, "tombstone-retention", 0, "Keep acknowledged tombstones this long")
	fs.DurationVar(&cfg.Sync.BackoffInitial, "backoff-initial", 0, "First retry delay")
	fs.DurationVar(&cfg.Sync.BackoffMax, "backoff-max", 0, "Maximum retry delay")

	fs.StringVar(&cfg.Connectivity.Source, "connectivity", "", "Connectivity source: always, file or probe")
	fs.StringVar(&cfg.Connectivity.StateFile, "state-file", "", "State file watched by the file source")
	fs.DurationVar(&cfg.Connectivity.ProbeInterval, "probe-interval", 0, "Health probe period")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	cfg.Server.HTTPAddress = controlAddress.String()
	return cfg, nil
}

func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
