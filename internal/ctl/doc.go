// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package ctl implements syncctl, the command line client of the sync
// daemon's control API.
package ctl
