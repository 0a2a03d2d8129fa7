// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import "time"

// Clock returns the current time. A nil Clock uses time.Now.
type Clock func() time.Time

// Now returns the current time.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// NowMillis returns the current time in milliseconds since the Unix epoch.
func (c Clock) NowMillis() int64 {
	return c.Now().UnixMilli()
}

// FixedClock returns a Clock that always reports t. Advance it by assigning
// a new value through the returned pointer.
func FixedClock(t time.Time) (Clock, *time.Time) {
	now := t
	return func() time.Time { return now }, &now
}
