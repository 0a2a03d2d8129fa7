// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/format"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// download pulls remote changes made since the checkpoint, parents before
// children so references resolve to local ids. Any remote failure aborts
// the phase and leaves the checkpoint untouched.
func (o *syncOrchestrator) download(ctx context.Context, c *cycle) error {
	for _, t := range o.format.DependencyOrder() {
		records, err := o.remote.ListChangedSince(ctx, c.scope, t, c.since)
		if err != nil {
			return fmt.Errorf("list %s changed since %d: %w", t, c.since, err)
		}

		for _, rec := range records {
			if err = o.absorb(ctx, c, t, rec); err != nil {
				return err
			}
		}

		o.metrics.ObserveDownload(t.String(), len(records))
		if len(records) > 0 {
			o.logger.Debug().Str("entity_type", t.String()).Int("records", len(records)).Msg("remote changes applied")
		}
	}
	return nil
}

// absorb applies one remote record. Echoes of our own writes and records
// already seen are skipped. A clean local copy is overwritten. A dirty one
// is compared and, if the content diverged, handed to the conflict policy.
func (o *syncOrchestrator) absorb(ctx context.Context, c *cycle, t models.EntityType, rec models.RemoteRecord) error {
	return o.inTx(ctx, "absorb remote record", func(tx *store.ClientStorages) error {
		snap, err := o.format.Snapshot(ctx, t, rec, newStoreRefs(tx.Records))
		if errors.Is(err, format.ErrInvalidReference) || errors.Is(err, format.ErrUnknownType) {
			logger.FromContext(ctx).Warn().
				Err(err).
				Str("entity_type", t.String()).
				Str("remote_id", rec.RemoteID).
				Msg("skipping malformed remote record")
			return nil
		}
		if err != nil {
			return err
		}

		local, err := tx.Records.GetByRemoteID(ctx, t, snap.RemoteID)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			if snap.Deleted {
				return nil
			}
			_, err = tx.Records.ApplyRemote(ctx, t, snap)
			return err
		case err != nil:
			return err
		}

		if snap.Version <= local.RemoteVersion {
			return nil
		}

		if !local.Dirty {
			snap.Payload = o.format.PreserveLocalOnly(t, local.Payload, snap.Payload)
			_, err = tx.Records.ApplyRemoteTo(ctx, t, local.ID, snap)
			return err
		}

		comparison := o.format.Compare(local, snap)
		if !comparison.Diverged {
			snap.Payload = o.format.PreserveLocalOnly(t, local.Payload, snap.Payload)
			if _, err = tx.Records.ApplyRemoteTo(ctx, t, local.ID, snap); err != nil {
				return err
			}
			_, err = tx.Queue.DropForEntity(ctx, t, local.ID)
			return err
		}

		return o.settle(ctx, tx, local, snap, comparison.Type)
	})
}

// settle records the conflict between local and snap and applies the
// configured policy. Under the manual policy pending uploads of the entity
// are dropped until someone resolves the conflict.
func (o *syncOrchestrator) settle(ctx context.Context, tx *store.ClientStorages, local models.Entity, snap models.Snapshot, conflictType models.ConflictType) error {
	recorded, err := tx.Conflicts.Record(ctx, models.Conflict{
		EntityType:     local.Type,
		EntityID:       local.ID,
		ConflictType:   conflictType,
		LocalSnapshot:  local.Snapshot(),
		RemoteSnapshot: snap,
	})
	if err != nil {
		return err
	}

	resolution := decide(o.opts.Policy, local, snap)
	o.metrics.ObserveConflict(string(o.opts.Policy), string(resolution))

	if resolution == models.ResolutionUnresolved {
		_, err = tx.Queue.DropForEntity(ctx, local.Type, local.ID)
		o.logger.Info().
			Str("conflict_id", recorded.ID).
			Str("entity_type", local.Type.String()).
			Str("entity_id", local.ID).
			Str("conflict_type", string(conflictType)).
			Msg("conflict awaits manual resolution")
		return err
	}

	if _, err = applyResolution(ctx, tx, o.format, recorded, resolution, nil); err != nil {
		return err
	}
	o.logger.Info().
		Str("conflict_id", recorded.ID).
		Str("entity_type", local.Type.String()).
		Str("resolution", string(resolution)).
		Msg("conflict resolved by policy")
	return nil
}
