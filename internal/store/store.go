// Package store provides transcript stores for the chat service.
//
// The memory store keeps a bounded number of conversations in process. The
// SQL store persists entries in SQLite or Postgres and migrates its schema
// with goose on open.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapchat/internal/chat"
)

// Drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultMaxConversations bounds the memory store.
const DefaultMaxConversations = 1024

// Config selects and configures a store.
type Config struct {
	Driver           string
	DSN              string
	MaxConversations int
	Logger           *slog.Logger
}

// Store is a chat.Store that may hold resources.
type Store interface {
	chat.Store
	Close() error
}

// Open opens the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Driver {
	case "", DriverMemory:
		size := cfg.MaxConversations
		if size <= 0 {
			size = DefaultMaxConversations
		}
		return NewMemory(size)
	case DriverSQLite, DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store %s: dsn is required", cfg.Driver)
		}
		s, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Debug("transcript store opened", "driver", cfg.Driver)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want memory, sqlite or postgres)", cfg.Driver)
	}
}
