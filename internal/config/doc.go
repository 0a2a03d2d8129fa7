// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config provides configuration loading, merging, and validation
// for the sync daemon and its control CLI.
//
// Configuration is assembled from multiple sources. For each field the
// first source carrying a non-zero value wins:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//  4. Built-in defaults
//
// The main entry points are [GetClientConfig] for the daemon and
// [GetCtlConfig] for syncctl.
package config
