// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	// ErrCycleInProgress is returned when a cycle is requested while another
	// one is running. The request is dropped, not queued.
	ErrCycleInProgress = errors.New("sync cycle already in progress")

	// ErrStorageFailure wraps any local store error raised inside a cycle.
	// The cycle is aborted and the checkpoint is left untouched.
	ErrStorageFailure = errors.New("local storage failure")

	// ErrRemoteUnavailable aborts the upload phase after too many transient
	// failures in a row.
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrIncompleteSnapshot is returned when keeping the remote side of a
	// conflict whose remote state is not known.
	ErrIncompleteSnapshot = errors.New("remote snapshot is incomplete")

	// ErrInvalidDataProvided wraps validation failures of caller input.
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrJobNotRunning is returned when stopping or triggering a job that was
	// never started.
	ErrJobNotRunning = errors.New("sync job is not running")
)
