// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Payload is the field map of a record in local naming. It is persisted as
// JSON text.
type Payload map[string]any

// Clone returns a deep copy of p. Nested maps and slices are copied too.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Payload:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Merge returns a copy of p with every key of partial applied on top.
// A nil value in partial clears the field.
func (p Payload) Merge(partial Payload) Payload {
	out := p.Clone()
	if out == nil {
		out = make(Payload, len(partial))
	}
	for k, v := range partial {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether both payloads encode to the same canonical JSON.
// Numeric representations (int vs float64) do not affect the result.
func (p Payload) Equal(other Payload) bool {
	a, errA := json.Marshal(p)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(normalizeNull(a), normalizeNull(b))
}

// DiffKeys returns the sorted keys whose values differ between p and other.
func (p Payload) DiffKeys(other Payload) []string {
	seen := make(map[string]struct{}, len(p)+len(other))
	for k := range p {
		seen[k] = struct{}{}
	}
	for k := range other {
		seen[k] = struct{}{}
	}

	var keys []string
	for k := range seen {
		av, aok := p[k]
		bv, bok := other[k]
		if aok != bok || !valueEqual(av, bv) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func valueEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func normalizeNull(b []byte) []byte {
	if bytes.Equal(b, []byte("null")) {
		return []byte("{}")
	}
	return b
}

// Value implements driver.Valuer.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}

	out := Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	*p = out
	return nil
}

// Value implements driver.Valuer.
func (s Snapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Snapshot) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Snapshot{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported snapshot column type %T", src)
	}
	return json.Unmarshal(raw, s)
}
