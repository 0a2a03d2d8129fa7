// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks record and conflict requests before they reach
// the local store.
package validators

import "context"

// Validator checks a request value. When fields are given only those fields
// are checked.
type Validator interface {
	Validate(ctx context.Context, v any, fields ...string) error
}
