/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package logging wires github.com/sirupsen/logrus the way teacher's own
// github.com/OSSystems/pkg/log wrapper did (a package-level logger plus
// WithFields-style structured calls), and adds the in-memory ring buffer the
// Log control message (spec.md §4.E) reads from.
package logging

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the package-level logger every component logs through,
// mirroring teacher's `log.Warn(...)` / `log.WithFields(...)` calls.
var Logger = logrus.StandardLogger()

// Ring is a fixed-capacity in-memory log buffer. A Ring is installed as a
// logrus.Hook so every entry logged through Logger also lands here,
// satisfying the Log control message without re-reading a log file.
type Ring struct {
	mu       sync.Mutex
	capacity int
	entries  []string
}

// NewRing creates a Ring that keeps at most capacity recent lines.
func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

// Levels implements logrus.Hook: the ring observes every level.
func (r *Ring) Levels() []logrus.Level { return logrus.AllLevels }

// Fire implements logrus.Hook.
func (r *Ring) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, line)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}

	return nil
}

// Snapshot returns a copy of the buffered lines, oldest first.
func (r *Ring) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Install attaches a Ring of the given capacity to Logger and returns it.
func Install(capacity int) *Ring {
	ring := NewRing(capacity)
	Logger.AddHook(ring)
	return ring
}
