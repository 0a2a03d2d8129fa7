// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// Operation names passed to a [MemoryRemote] hook.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpPing   = "ping"
)

// MemoryHook runs before every call of a MemoryRemote. A non-nil error is
// returned to the caller instead of performing the call.
type MemoryHook func(ctx context.Context, op string, t models.EntityType) error

type memoryRecord struct {
	models.RemoteRecord
	facilityID string
}

// MemoryRemote is an in-process system of record. It versions records,
// signals conflicts on stale updates, keeps tombstones and can act as a
// second client editing records behind the engine's back.
type MemoryRemote struct {
	mu sync.Mutex

	clock   utils.Clock
	records map[models.EntityType]map[string]*memoryRecord
	// byClient maps idempotency keys to remote ids.
	byClient map[string]string
	calls    map[string]int
	hook     MemoryHook
}

// NewMemoryRemote returns an empty remote. A nil clock uses wall time.
func NewMemoryRemote(clock utils.Clock) *MemoryRemote {
	return &MemoryRemote{
		clock:    clock,
		records:  make(map[models.EntityType]map[string]*memoryRecord),
		byClient: make(map[string]string),
		calls:    make(map[string]int),
	}
}

// SetHook installs hook. Pass nil to remove it.
func (m *MemoryRemote) SetHook(hook MemoryHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Calls returns how many times op was invoked, failed calls included.
func (m *MemoryRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryRemote) enter(ctx context.Context, op string, t models.EntityType) error {
	m.mu.Lock()
	m.calls[op]++
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op, t); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (m *MemoryRemote) table(t models.EntityType) map[string]*memoryRecord {
	tbl, ok := m.records[t]
	if !ok {
		tbl = make(map[string]*memoryRecord)
		m.records[t] = tbl
	}
	return tbl
}

func (m *MemoryRemote) insert(t models.EntityType, facilityID string, fields models.WireFields) *memoryRecord {
	rec := &memoryRecord{
		RemoteRecord: models.RemoteRecord{
			RemoteID:   utils.NewID(),
			Type:       t,
			Version:    1,
			ModifiedAt: m.clock.NowMillis(),
			Fields:     maps.Clone(fields),
		},
		facilityID: facilityID,
	}
	m.table(t)[rec.RemoteID] = rec
	return rec
}

func ack(rec *memoryRecord) models.RemoteAck {
	return models.RemoteAck{RemoteID: rec.RemoteID, Version: rec.Version, ModifiedAt: rec.ModifiedAt}
}

func (rec *memoryRecord) snapshot() models.RemoteRecord {
	out := rec.RemoteRecord
	out.Fields = maps.Clone(rec.Fields)
	if out.Deleted {
		out.Fields = nil
	}
	return out
}

// CreateRecord implements [RemoteAPI].
func (m *MemoryRemote) CreateRecord(ctx context.Context, scope models.Scope, t models.EntityType, clientID string, fields models.WireFields) (models.RemoteAck, error) {
	if err := m.enter(ctx, OpCreate, t); err != nil {
		return models.RemoteAck{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(t) + "/" + clientID
	if clientID != "" {
		if remoteID, seen := m.byClient[key]; seen {
			if rec, ok := m.table(t)[remoteID]; ok {
				return ack(rec), nil
			}
		}
	}

	rec := m.insert(t, scope.FacilityID, fields)
	if clientID != "" {
		m.byClient[key] = rec.RemoteID
	}
	return ack(rec), nil
}

// UpdateRecord implements [RemoteAPI].
func (m *MemoryRemote) UpdateRecord(ctx context.Context, _ models.Scope, t models.EntityType, remoteID string, baseVersion int64, fields models.WireFields) (models.UpdateResult, error) {
	if err := m.enter(ctx, OpUpdate, t); err != nil {
		return models.UpdateResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.table(t)[remoteID]
	if !ok || rec.Deleted {
		return models.UpdateResult{Status: models.UpdateNotFound}, nil
	}
	if rec.Version != baseVersion {
		current := rec.snapshot()
		return models.UpdateResult{Status: models.UpdateConflict, Current: &current}, nil
	}

	rec.Fields = maps.Clone(fields)
	rec.Version++
	rec.ModifiedAt = m.clock.NowMillis()
	return models.UpdateResult{Status: models.UpdateOK, Ack: ack(rec)}, nil
}

// DeleteRecord implements [RemoteAPI].
func (m *MemoryRemote) DeleteRecord(ctx context.Context, _ models.Scope, t models.EntityType, remoteID string) (models.DeleteResult, error) {
	if err := m.enter(ctx, OpDelete, t); err != nil {
		return models.DeleteResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.table(t)[remoteID]
	if !ok || rec.Deleted {
		return models.DeleteResult{Status: models.DeleteNotFound}, nil
	}
	m.tombstone(rec)
	return models.DeleteResult{Status: models.DeleteOK}, nil
}

func (m *MemoryRemote) tombstone(rec *memoryRecord) {
	rec.Deleted = true
	rec.Version++
	rec.ModifiedAt = m.clock.NowMillis()
}

// ListChangedSince implements [RemoteAPI]. Records created under another
// facility are not visible.
func (m *MemoryRemote) ListChangedSince(ctx context.Context, scope models.Scope, t models.EntityType, since int64) ([]models.RemoteRecord, error) {
	if err := m.enter(ctx, OpList, t); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RemoteRecord, 0)
	for _, rec := range m.table(t) {
		if rec.ModifiedAt < since {
			continue
		}
		if scope.FacilityID != "" && rec.facilityID != "" && rec.facilityID != scope.FacilityID {
			continue
		}
		out = append(out, rec.snapshot())
	}

	slices.SortFunc(out, func(a, b models.RemoteRecord) int {
		return cmp.Or(cmp.Compare(a.ModifiedAt, b.ModifiedAt), strings.Compare(a.RemoteID, b.RemoteID))
	})
	return out, nil
}

// Ping implements [HealthChecker].
func (m *MemoryRemote) Ping(ctx context.Context) error {
	return m.enter(ctx, OpPing, "")
}

// Put inserts a record as another client would.
func (m *MemoryRemote) Put(t models.EntityType, facilityID string, fields models.WireFields) models.RemoteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(t, facilityID, fields).snapshot()
}

// Edit merges fields into a live record as another client would.
func (m *MemoryRemote) Edit(t models.EntityType, remoteID string, fields models.WireFields) (models.RemoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.table(t)[remoteID]
	if !ok || rec.Deleted {
		return models.RemoteRecord{}, fmt.Errorf("%w: %s %s not found", ErrRejected, t, remoteID)
	}

	if rec.Fields == nil {
		rec.Fields = make(models.WireFields, len(fields))
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.Version++
	rec.ModifiedAt = m.clock.NowMillis()
	return rec.snapshot(), nil
}

// Remove deletes a record as another client would.
func (m *MemoryRemote) Remove(t models.EntityType, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.table(t)[remoteID]
	if !ok || rec.Deleted {
		return fmt.Errorf("%w: %s %s not found", ErrRejected, t, remoteID)
	}
	m.tombstone(rec)
	return nil
}

// Get returns the current state of a record.
func (m *MemoryRemote) Get(t models.EntityType, remoteID string) (models.RemoteRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.table(t)[remoteID]
	if !ok {
		return models.RemoteRecord{}, false
	}
	return rec.snapshot(), true
}

// Len returns the number of live records of type t.
func (m *MemoryRemote) Len(t models.EntityType) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rec := range m.table(t) {
		if !rec.Deleted {
			n++
		}
	}
	return n
}
