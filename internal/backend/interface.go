package backend

import (
	"context"

	"wisesplit/internal/ledger"
	"wisesplit/internal/services"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult bundles the ledger store with the optional change publisher.
type BackendResult struct {
	Store ledger.Store
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher services.LedgerPublisher
	// Ping reports whether the store can serve requests.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
