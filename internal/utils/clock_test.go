// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_NilUsesWallClock(t *testing.T) {
	var c Clock
	before := time.Now().UnixMilli()
	got := c.NowMillis()
	assert.GreaterOrEqual(t, got, before)
}

func TestFixedClock(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	c, now := FixedClock(start)

	assert.Equal(t, int64(1_700_000_000_000), c.NowMillis())

	*now = now.Add(time.Second)
	assert.Equal(t, int64(1_700_000_001_000), c.NowMillis())
}
