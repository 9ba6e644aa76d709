// Package storage persists bot state as a single JSON document on disk.
//
// The document is small (per-user cooldown deadlines, per-guild settings)
// and mutations are rare, so every write rewrites the whole file. The store
// is safe for concurrent use.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UserRecord is the persisted per-user state.
type UserRecord struct {
	// CommandCooldowns maps command name to the time the user may run it
	// again.
	CommandCooldowns map[string]time.Time `json:"commandCooldowns,omitempty"`
}

// GuildRecord is the persisted per-guild state.
type GuildRecord struct {
	JoinedAt time.Time `json:"joinedAt,omitempty"`
}

// Document is the whole persisted state.
type Document struct {
	Users  map[string]UserRecord  `json:"users"`
	Guilds map[string]GuildRecord `json:"guilds"`
}

func emptyDocument() Document {
	return Document{
		Users:  make(map[string]UserRecord),
		Guilds: make(map[string]GuildRecord),
	}
}

// Store owns the document and its backing file.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    Document
	logger *slog.Logger
}

// Open loads the document at path, seeding an empty one if the file does
// not exist yet.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, doc: emptyDocument(), logger: logger}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.flushLocked(); err != nil {
			return nil, fmt.Errorf("seed store: %w", err)
		}
		logger.Info("seeded empty document store", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	if s.doc.Users == nil {
		s.doc.Users = make(map[string]UserRecord)
	}
	if s.doc.Guilds == nil {
		s.doc.Guilds = make(map[string]GuildRecord)
	}
	logger.Debug("loaded document store",
		"path", path, "users", len(s.doc.Users), "guilds", len(s.doc.Guilds))
	return s, nil
}

// User returns the record for userID. The second return reports whether the
// user has a record.
func (s *Store) User(userID string) (UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Users[userID]
	return rec, ok
}

// UpdateUser applies fn to the user's record, creating it if absent, and
// rewrites the file.
func (s *Store) UpdateUser(userID string, fn func(*UserRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.doc.Users[userID]
	if rec.CommandCooldowns == nil {
		rec.CommandCooldowns = make(map[string]time.Time)
	}
	fn(&rec)
	s.doc.Users[userID] = rec
	return s.flushLocked()
}

// Guild returns the record for guildID.
func (s *Store) Guild(guildID string) (GuildRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Guilds[guildID]
	return rec, ok
}

// UpdateGuild applies fn to the guild's record, creating it if absent, and
// rewrites the file.
func (s *Store) UpdateGuild(guildID string, fn func(*GuildRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.doc.Guilds[guildID]
	fn(&rec)
	s.doc.Guilds[guildID] = rec
	return s.flushLocked()
}

// Cooldown returns the deadline before which userID may not run command
// again. The zero time means no cooldown is recorded.
func (s *Store) Cooldown(userID, command string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Users[userID].CommandCooldowns[command]
}

// SetCooldown records the next allowed run time for userID and command.
func (s *Store) SetCooldown(userID, command string, until time.Time) error {
	return s.UpdateUser(userID, func(rec *UserRecord) {
		rec.CommandCooldowns[command] = until
	})
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
