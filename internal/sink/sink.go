// Package sink persists game records for later analysis. The sink is
// write-only from the engine's point of view: nothing in the game ever
// reads back through it.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/duskhollow/duskhollow/internal/config"
)

// Record types written over a game's lifetime.
const (
	TypeGameStart = "game_start"
	TypeSnapshot  = "snapshot"
	TypeGameEnd   = "game_end"
)

// Record is one analytics entry.
type Record struct {
	Type      string         `json:"type"`
	GameID    string         `json:"game_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Sink accepts records. Implementations must be safe for concurrent
// use.
type Sink interface {
	Write(rec Record) error
	Close() error
}

// NewFromConfig returns a JSONL sink in the configured directory, or a
// Nop sink when persistence is disabled.
func NewFromConfig(cfg config.SinkConfig, gameID string) (Sink, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return NewJSONL(dir, gameID)
}

// JSONL writes records as one JSON object per line to
// {dir}/{gameID}.jsonl.
type JSONL struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewJSONL creates the record file, making the directory if needed.
func NewJSONL(dir, gameID string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sink directory: %w", err)
	}
	path := filepath.Join(dir, gameID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening sink file: %w", err)
	}
	return &JSONL{file: f, enc: json.NewEncoder(f), now: time.Now}, nil
}

// Write appends one record, stamping it if the caller did not.
func (s *JSONL) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("sink is closed")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	return s.enc.Encode(rec)
}

// Close flushes and closes the record file. Writes after Close fail.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.enc = nil
	return err
}

// Nop discards every record.
type Nop struct{}

func (Nop) Write(Record) error { return nil }
func (Nop) Close() error       { return nil }
