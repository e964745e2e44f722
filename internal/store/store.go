// Package store provides inbound webhook deduplication backends.
//
// LINE redelivers webhook events on slow or failed acknowledgements, so
// event processing must be idempotent per message ID. The DedupRepo keeps
// one row per inbound message; an in-memory backend serves development and
// tests, SQLite and Postgres back deployments.
package store

import (
	"strings"
	"sync"
	"time"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Postgres DSNs
// use a URL scheme or key=value form; anything else is treated as a SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Opts holds configuration options for creating a store backend.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// postgres:// URL for Postgres.
	DSN string
}

// Option modifies Opts.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DedupRecord represents an inbound message deduplication record.
type DedupRecord struct {
	MessageID   string     `json:"message_id"`
	UserID      string     `json:"user_id"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// DedupRepo defines the interface for inbound message deduplication.
type DedupRepo interface {
	// IsDuplicate checks if a message ID has already been seen.
	IsDuplicate(messageID string) (bool, error)

	// RecordInbound inserts a new inbound message record. Returns false if
	// the message was already recorded (duplicate).
	RecordInbound(messageID, userID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for a message.
	MarkProcessed(messageID string) error
}

// InMemoryStore implements DedupRepo with process-local storage.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*DedupRecord
}

// Compile-time check that InMemoryStore implements DedupRepo.
var _ DedupRepo = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory dedup store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*DedupRecord)}
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[messageID]; ok {
		return false, nil
	}
	s.records[messageID] = &DedupRecord{
		MessageID:  messageID,
		UserID:     userID,
		ReceivedAt: time.Now(),
	}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[messageID]; ok {
		now := time.Now()
		rec.ProcessedAt = &now
	}
	return nil
}
