// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "context"

// Server defines the lifecycle contract of the control API.
type Server interface {
	// RunServer serves requests until ctx is canceled, then shuts down
	// gracefully. It returns the first listener error, if any.
	RunServer(ctx context.Context) error

	// Shutdown stops the server and closes open status streams.
	Shutdown()
}
