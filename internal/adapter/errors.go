// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

var (
	// ErrTransient covers timeouts, connection failures, 5xx responses and
	// rate limiting. The call may succeed if retried later.
	ErrTransient = errors.New("transient remote error")

	// ErrRejected is returned when the remote service refuses a request as
	// invalid. Retrying the same request will not help.
	ErrRejected = errors.New("remote rejected request")

	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrInvalidAddress is returned when the configured base URL is unusable.
	ErrInvalidAddress = errors.New("invalid remote address")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
