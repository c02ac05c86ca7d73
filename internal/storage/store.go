// Package storage owns durable state: the position snapshot file that
// survives restarts and the append-only SQLite trade journal.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"pairs_go/internal/domain"
)

// PositionStore is the process-wide map from pair key to open position.
// Every mutation is persisted synchronously before the mutator returns, so
// the in-memory map and the durable copy never diverge for longer than a
// single saga step. Single-writer discipline: only the lifecycle controller
// mutates; everyone else reads snapshots.
type PositionStore struct {
	mu        sync.RWMutex
	path      string
	positions map[string]domain.Position
}

// NewPositionStore creates a store backed by the given JSON state file.
func NewPositionStore(path string) *PositionStore {
	return &PositionStore{
		path:      path,
		positions: make(map[string]domain.Position),
	}
}

// Load populates the store from the state file. A missing file means a fresh
// start with an empty map, not an error.
func (s *PositionStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.positions = make(map[string]domain.Position)
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}

	positions := make(map[string]domain.Position)
	if err := json.Unmarshal(data, &positions); err != nil {
		return fmt.Errorf("unmarshal state file: %w", err)
	}
	s.positions = positions

	slog.Info("Position state loaded",
		slog.String("path", s.path),
		slog.Int("positions", len(positions)))
	return nil
}

// Snapshot returns a copy of the full map for iteration and status replies.
func (s *PositionStore) Snapshot() map[string]domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Position, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out
}

// Get returns the position for a pair key, if any.
func (s *PositionStore) Get(key string) (domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[key]
	return pos, ok
}

// Len is the count of live two-legged exposures.
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Upsert stores a position and persists the full map before returning.
func (s *PositionStore) Upsert(key string, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[key] = pos
	return s.persistLocked()
}

// Remove deletes a position and persists the full map before returning.
func (s *PositionStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, key)
	return s.persistLocked()
}

// Persist rewrites the durable copy of the full map. Idempotent: two calls
// with no intervening mutation produce byte-identical files.
func (s *PositionStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked writes atomically: temp file in the same directory, then
// rename over the target. JSON map keys marshal sorted, keeping output stable.
func (s *PositionStore) persistLocked() error {
	data, err := json.MarshalIndent(s.positions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".positions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
