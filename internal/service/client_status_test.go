// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"testing"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPublisher_SubscribeYieldsCurrentThenLatest(t *testing.T) {
	p := NewStatusPublisher()

	ch, cancel := p.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, models.PhaseIdle, first.Phase)

	p.Update(func(s *models.Status) { s.Phase = models.PhaseUploading })
	p.Update(func(s *models.Status) { s.Phase = models.PhaseDownloading })
	p.Update(func(s *models.Status) { s.PendingCount = 3 })

	latest := <-ch
	assert.Equal(t, models.PhaseDownloading, latest.Phase)
	assert.Equal(t, int64(3), latest.PendingCount)

	select {
	case s := <-ch:
		t.Fatalf("unexpected extra status %+v", s)
	default:
	}
}

func TestStatusPublisher_UnchangedUpdateIsSilent(t *testing.T) {
	p := NewStatusPublisher()
	ch, cancel := p.Subscribe()
	defer cancel()
	<-ch

	p.Update(func(s *models.Status) { s.Phase = models.PhaseIdle })

	select {
	case s := <-ch:
		t.Fatalf("unexpected status %+v", s)
	default:
	}
}

func TestStatusPublisher_CancelClosesChannel(t *testing.T) {
	p := NewStatusPublisher()
	ch, cancel := p.Subscribe()
	<-ch

	cancel()
	assert.NotPanics(t, cancel)

	_, ok := <-ch
	require.False(t, ok)

	p.Update(func(s *models.Status) { s.Connected = true })
	assert.True(t, p.Snapshot().Connected)
}
