// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the runtime of the sync daemon.
//
// It wires the local store, the remote adapter, the connectivity signal,
// the sync services and the control API into a single process lifecycle.
package client
