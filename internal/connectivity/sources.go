// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// ErrUnknownSource is returned by [NewSource] for an unsupported source name.
var ErrUnknownSource = errors.New("unknown connectivity source")

// Source reports reachability into a Monitor until ctx is done.
type Source interface {
	Run(ctx context.Context, m *Monitor) error
}

// Pinger checks whether the remote service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewSource builds the source selected by cfg.Source.
func NewSource(cfg config.ClientConnectivity, pinger Pinger, logger *logger.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceAlways, "":
		return Always{}, nil
	case config.SourceFile:
		return NewFileSource(cfg.StateFile, logger), nil
	case config.SourceProbe:
		if pinger == nil {
			return nil, fmt.Errorf("%w: probe source needs a health checker", ErrUnknownSource)
		}
		return NewProbeSource(pinger, cfg.ProbeInterval, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// Always reports a permanently connected network.
type Always struct{}

// Run implements [Source].
func (Always) Run(ctx context.Context, m *Monitor) error {
	m.Set(true)
	<-ctx.Done()
	return nil
}

// FileSource follows a state file containing "online" or "offline". The
// platform's network layer (or an operator) rewrites the file; a missing
// file means offline.
type FileSource struct {
	path   string
	logger *logger.Logger
}

// NewFileSource returns a source watching path.
func NewFileSource(path string, logger *logger.Logger) *FileSource {
	return &FileSource{path: filepath.Clean(path), logger: logger}
}

// Run implements [Source]. The parent directory is watched rather than the
// file so atomic replacements are seen.
func (s *FileSource) Run(ctx context.Context, m *Monitor) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	m.Set(s.read())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			m.Set(s.read())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Err(err).Str("func", "FileSource.Run").Msg("state file watcher error")
		}
	}
}

func (s *FileSource) read() bool {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	return ParseState(string(raw))
}

// ParseState interprets the contents of a state file.
func ParseState(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online", "up", "connected", "1", "true":
		return true
	default:
		return false
	}
}

// ProbeSource pings the remote service periodically.
type ProbeSource struct {
	pinger   Pinger
	interval time.Duration
	logger   *logger.Logger
}

// NewProbeSource returns a probing source. A non-positive interval means
// 15 seconds.
func NewProbeSource(pinger Pinger, interval time.Duration, logger *logger.Logger) *ProbeSource {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ProbeSource{pinger: pinger, interval: interval, logger: logger}
}

// Run implements [Source]. The first probe runs immediately.
func (s *ProbeSource) Run(ctx context.Context, m *Monitor) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		s.probe(ctx, m)

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (s *ProbeSource) probe(ctx context.Context, m *Monitor) {
	probeCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	err := s.pinger.Ping(probeCtx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("func", "ProbeSource.probe").Msg("remote unreachable")
	}
	m.Set(err == nil)
}
