// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHashKey = "test-hash-key"

func TestHashString_MatchesHMAC(t *testing.T) {
	body := `{"fields":{"given_name":"Amara"}}`

	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write([]byte(body))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, HashString(body, testHashKey))
}

func TestHashString_EmptyKey(t *testing.T) {
	assert.Empty(t, HashString("anything", ""))
}

func TestHashString_DifferentKeys(t *testing.T) {
	body := "same body"

	assert.NotEqual(t, HashString(body, "key-one"), HashString(body, "key-two"))
}

func TestValidHash(t *testing.T) {
	body := []byte(`{"remote_id":"r-1"}`)
	sig := HashString(string(body), testHashKey)

	assert.True(t, ValidHash(body, sig, testHashKey))
	assert.False(t, ValidHash(body, sig, "other-key"))
	assert.False(t, ValidHash([]byte("tampered"), sig, testHashKey))
	assert.False(t, ValidHash(body, "not-hex", testHashKey))
}
