// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by GetClientConfig. Match with [errors.Is].
var (
	ErrInvalidAdapterConfigs      = errors.New("invalid adapter configuration")
	ErrInvalidStorageConfigs      = errors.New("invalid storage configuration")
	ErrInvalidServerConfigs       = errors.New("invalid server configuration")
	ErrInvalidWorkerConfigs       = errors.New("invalid worker configuration")
	ErrInvalidSyncConfigs         = errors.New("invalid sync configuration")
	ErrInvalidConnectivityConfigs = errors.New("invalid connectivity configuration")
)
