// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ctl

import "errors"

var (
	// ErrRequestFailed wraps every non-2xx answer of the control API.
	ErrRequestFailed = errors.New("control API request failed")

	// ErrDaemonUnreachable is returned when no answer arrives at all.
	ErrDaemonUnreachable = errors.New("sync daemon unreachable")
)
