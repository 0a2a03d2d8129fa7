// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package format

import "errors"

var (
	// ErrUnknownType is returned for entity types without a mapping.
	ErrUnknownType = errors.New("no mapping for entity type")

	// ErrUnresolvedReference is returned when a referenced entity exists
	// locally but has not been uploaded yet. The upload can be retried once
	// the referenced entity has a remote id.
	ErrUnresolvedReference = errors.New("referenced entity has no remote id yet")

	// ErrInvalidReference is returned when a reference field does not hold a
	// string id.
	ErrInvalidReference = errors.New("reference field is not a string id")
)
