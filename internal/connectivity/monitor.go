// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package connectivity is the single source of truth for reachability of the
// remote service.
//
// A [Monitor] holds the connected flag and fans out transitions to
// subscribers. It does not observe the network itself: a [Source] such as
// [FileSource] or [ProbeSource] feeds it through [Monitor.Set].
package connectivity

import (
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/utils"
)

const subscriberBuffer = 4

// Event is a connectivity transition.
type Event struct {
	Connected bool      `json:"connected"`
	At        time.Time `json:"at"`
}

// Reconnected reports whether the event is a false to true transition.
func (e Event) Reconnected() bool {
	return e.Connected
}

// Monitor keeps the connected flag and notifies subscribers on change.
type Monitor struct {
	mu        sync.Mutex
	connected bool
	subs      map[uint64]chan Event
	nextID    uint64

	clock  utils.Clock
	logger *logger.Logger
}

// NewMonitor returns a monitor in the given initial state.
func NewMonitor(initial bool, clock utils.Clock, logger *logger.Logger) *Monitor {
	return &Monitor{
		connected: initial,
		subs:      make(map[uint64]chan Event),
		clock:     clock,
		logger:    logger,
	}
}

// IsConnected returns the current state.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Set updates the state. Subscribers are notified only when the value
// actually changes, so repeated "connected" reports never produce more than
// one reconnect. It returns true if the state changed.
func (m *Monitor) Set(connected bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected == connected {
		return false
	}
	m.connected = connected

	ev := Event{Connected: connected, At: m.clock.Now()}
	for _, ch := range m.subs {
		publish(ch, ev)
	}

	m.logger.Info().
		Bool("connected", connected).
		Int("subscribers", len(m.subs)).
		Msg("connectivity changed")
	return true
}

// publish never blocks: when a subscriber lags behind, its oldest event is
// dropped to make room.
func publish(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel of transitions and a function that cancels the
// subscription and closes the channel. Cancel may be called more than once.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Event, subscriberBuffer)
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
