// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package format

import (
	"context"
	"fmt"
	"slices"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// RefResolver translates ids of referenced entities. known reports whether
// the id belongs to an entity this replica has seen at all.
type RefResolver interface {
	RemoteIDFor(ctx context.Context, t models.EntityType, localID string) (remoteID string, known bool, err error)
	LocalIDFor(ctx context.Context, t models.EntityType, remoteID string) (localID string, known bool, err error)
}

// Adapter applies the field tables of all entity types.
type Adapter struct {
	mappings map[models.EntityType]Mapping
	toLocal  map[models.EntityType]map[string]string
	order    []models.EntityType
}

// NewAdapter builds an Adapter from mappings. Types are processed in the
// order given, which must list referenced types before the types that
// reference them.
func NewAdapter(mappings ...Mapping) *Adapter {
	a := &Adapter{
		mappings: make(map[models.EntityType]Mapping, len(mappings)),
		toLocal:  make(map[models.EntityType]map[string]string, len(mappings)),
		order:    make([]models.EntityType, 0, len(mappings)),
	}
	for _, m := range mappings {
		if _, dup := a.mappings[m.Type]; !dup {
			a.order = append(a.order, m.Type)
		}
		a.mappings[m.Type] = m.clone()
		a.toLocal[m.Type] = m.reversed()
	}
	return a
}

// NewDefaultAdapter builds an Adapter over [DefaultMappings].
func NewDefaultAdapter() *Adapter {
	return NewAdapter(DefaultMappings()...)
}

// DependencyOrder lists entity types with referenced types first.
func (a *Adapter) DependencyOrder() []models.EntityType {
	return slices.Clone(a.order)
}

func (a *Adapter) mapping(t models.EntityType) (Mapping, error) {
	m, ok := a.mappings[t]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return m, nil
}

// ToWire renames payload fields, strips local-only fields and replaces
// local references with remote ids. A reference to an entity unknown to
// refs is sent unchanged.
func (a *Adapter) ToWire(ctx context.Context, t models.EntityType, p models.Payload, refs RefResolver) (models.WireFields, error) {
	m, err := a.mapping(t)
	if err != nil {
		return nil, err
	}

	out := make(models.WireFields, len(p))
	for field, value := range p {
		if m.isLocalOnly(field) {
			continue
		}

		if refType, isRef := m.References[field]; isRef && refs != nil && value != nil {
			localID, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrInvalidReference, t, field)
			}
			remoteID, known, resolveErr := refs.RemoteIDFor(ctx, refType, localID)
			if resolveErr != nil {
				return nil, fmt.Errorf("resolve %s.%s: %w", t, field, resolveErr)
			}
			if known {
				if remoteID == "" {
					return nil, fmt.Errorf("%w: %s %s", ErrUnresolvedReference, refType, localID)
				}
				value = remoteID
			}
		}

		wireName, ok := m.Fields[field]
		if !ok {
			wireName = field
		}
		out[wireName] = value
	}
	return out, nil
}

// FromWire is the inverse of ToWire. Unknown wire fields keep their name
// and references to entities not present locally keep the remote id.
func (a *Adapter) FromWire(ctx context.Context, t models.EntityType, w models.WireFields, refs RefResolver) (models.Payload, error) {
	m, err := a.mapping(t)
	if err != nil {
		return nil, err
	}
	names := a.toLocal[t]

	out := make(models.Payload, len(w))
	for wireName, value := range w {
		field, ok := names[wireName]
		if !ok {
			field = wireName
		}

		if refType, isRef := m.References[field]; isRef && refs != nil && value != nil {
			remoteID, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrInvalidReference, t, field)
			}
			localID, known, resolveErr := refs.LocalIDFor(ctx, refType, remoteID)
			if resolveErr != nil {
				return nil, fmt.Errorf("resolve %s.%s: %w", t, field, resolveErr)
			}
			if known {
				value = localID
			}
		}

		out[field] = value
	}
	return out, nil
}

// Snapshot converts a remote record into a local snapshot. A tombstone
// without fields yields a snapshot without payload.
func (a *Adapter) Snapshot(ctx context.Context, t models.EntityType, rec models.RemoteRecord, refs RefResolver) (models.Snapshot, error) {
	snap := models.Snapshot{
		RemoteID:   rec.RemoteID,
		Version:    rec.Version,
		ModifiedAt: rec.ModifiedAt,
		Deleted:    rec.Deleted,
	}
	if rec.Deleted && rec.Fields == nil {
		return snap, nil
	}

	payload, err := a.FromWire(ctx, t, rec.Fields, refs)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Payload = payload
	return snap, nil
}

// PreserveLocalOnly copies the local-only fields of local into incoming.
func (a *Adapter) PreserveLocalOnly(t models.EntityType, local, incoming models.Payload) models.Payload {
	m, ok := a.mappings[t]
	if !ok || incoming == nil || len(m.LocalOnly) == 0 {
		return incoming
	}

	out := incoming.Clone()
	for _, field := range m.LocalOnly {
		if v, ok := local[field]; ok {
			out[field] = v
		}
	}
	return out
}

// stripLocalOnly returns p without local-only fields.
func (a *Adapter) stripLocalOnly(t models.EntityType, p models.Payload) models.Payload {
	m, ok := a.mappings[t]
	if !ok || len(m.LocalOnly) == 0 || p == nil {
		return p
	}

	out := p.Clone()
	for _, field := range m.LocalOnly {
		delete(out, field)
	}
	return out
}

const (
	createBase   = 100
	typeStep     = 10
	deletePerDep = 1
)

// Priority ranks a queue entry. Creates of referenced types drain first so
// their remote ids exist before dependent records are uploaded. Deletes
// drain children first.
func (a *Adapter) Priority(t models.EntityType, op models.Operation) int {
	idx := slices.Index(a.order, t)
	if idx < 0 {
		return 0
	}

	switch op {
	case models.OperationCreate:
		return createBase + (len(a.order)-idx)*typeStep
	case models.OperationDelete:
		return idx * deletePerDep
	default:
		return 0
	}
}
