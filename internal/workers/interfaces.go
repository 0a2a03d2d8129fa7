// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package workers runs the long-lived parts of the sync daemon side by side
// and stops all of them when one fails or the daemon shuts down.
package workers

import "context"

// Worker is a long-running part of the daemon. Run blocks until ctx is
// canceled or the worker fails. A clean stop returns nil.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}
