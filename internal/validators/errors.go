// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidEntityType    = errors.New("invalid entity type")
	ErrInvalidID            = errors.New("invalid record id")
	ErrEmptyPayload         = errors.New("payload cannot be empty")
	ErrInvalidConflictID    = errors.New("invalid conflict id")
	ErrInvalidResolution    = errors.New("invalid resolution")
	ErrMergedPayloadMissing = errors.New("merged resolution requires a payload")
)
