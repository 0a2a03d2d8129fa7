// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the local control API of the sync daemon.
//
// It exposes route wiring, request handlers, and middleware used by UIs and
// by syncctl. Request tracing, access logging, response compression and body
// integrity checks are handled in this package before requests are delegated
// to the service layer.
package http
