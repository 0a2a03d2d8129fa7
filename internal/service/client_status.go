// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"sync"

	"github.com/MKhiriev/go-sync-keeper/models"
)

// StatusPublisher holds the single status value observed by the UI and
// pushes every change to subscribers. Slow subscribers only ever see the
// latest value.
type StatusPublisher struct {
	mu     sync.RWMutex
	status models.Status
	subs   map[uint64]chan models.Status
	nextID uint64
}

// NewStatusPublisher returns a publisher in the idle phase.
func NewStatusPublisher() *StatusPublisher {
	return &StatusPublisher{
		status: models.Status{Phase: models.PhaseIdle},
		subs:   make(map[uint64]chan models.Status),
	}
}

// Snapshot returns the current status.
func (p *StatusPublisher) Snapshot() models.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Update applies fn to the status and notifies subscribers if anything
// changed.
func (p *StatusPublisher) Update(fn func(s *models.Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.status
	fn(&next)
	if next == p.status {
		return
	}
	p.status = next

	for _, ch := range p.subs {
		replaceLatest(ch, next)
	}
}

func replaceLatest(ch chan models.Status, s models.Status) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}

// Subscribe returns a channel that immediately yields the current status
// and then every change, plus a cancel function that closes the channel.
func (p *StatusPublisher) Subscribe() (<-chan models.Status, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan models.Status, 1)
	ch <- p.status
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}
