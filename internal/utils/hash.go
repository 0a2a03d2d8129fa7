// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashHeader carries the hex-encoded HMAC-SHA256 of a request body.
const HashHeader = "HashSHA256"

// HashString computes an HMAC-SHA256 signature over data using hashKey and
// returns it hex-encoded. An empty key yields an empty signature so callers
// can skip the header altogether.
func HashString(data string, hashKey string) string {
	if hashKey == "" {
		return ""
	}
	return hex.EncodeToString(hashBytes([]byte(data), hashKey))
}

// ValidHash reports whether signature is the hex HMAC of data under hashKey.
// The comparison is constant time.
func ValidHash(data []byte, signature string, hashKey string) bool {
	want := hashBytes(data, hashKey)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func hashBytes(data []byte, hashKey string) []byte {
	hasher := hmac.New(sha256.New, []byte(hashKey))
	hasher.Write(data)
	return hasher.Sum(nil)
}
