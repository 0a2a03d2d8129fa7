// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package server runs the control API of the sync daemon.
//
// It owns the HTTP server lifecycle: startup, serving until the caller's
// context is canceled, and graceful shutdown within a configured timeout.
package server
