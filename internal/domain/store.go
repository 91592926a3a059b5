package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// GuessStore persists lifecycle attempts and their outcomes.
type GuessStore interface {
	Create(ctx context.Context, rec GuessRecord) error
	UpdateSubmitted(ctx context.Context, id, txHash string, requestID string) error
	UpdateTerminal(ctx context.Context, rec GuessRecord) error
	GetByID(ctx context.Context, id string) (GuessRecord, error)
	ListByPlayer(ctx context.Context, player string, opts ListOpts) ([]GuessRecord, error)
	ListSettledBefore(ctx context.Context, before time.Time) ([]GuessRecord, error)
	DeleteSettledBefore(ctx context.Context, before time.Time) (int64, error)
}

// StatsCache caches contract-read snapshots between refreshes.
type StatsCache interface {
	SetGameInfo(ctx context.Context, info GameInfo) error
	GetGameInfo(ctx context.Context) (GameInfo, error)
	SetPlayerStats(ctx context.Context, player string, stats PlayerStats) error
	GetPlayerStats(ctx context.Context, player string) (PlayerStats, error)
	InvalidatePlayer(ctx context.Context, player string) error
}

// StreamMessage is a single entry read from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus publishes and subscribes to raw event payloads. Pub/sub delivery
// is ephemeral; streams are durable and ordered.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager provides distributed mutual exclusion, used to keep a player's
// guess lifecycle single-flight across service replicas.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports settled guesses older than a retention window to blob
// storage and prunes them from the primary store.
type Archiver interface {
	ArchiveBefore(ctx context.Context, before time.Time) (archived int, err error)
}
