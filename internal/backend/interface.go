package backend

import (
	"context"
	"time"

	"moneymanager/internal/ledger"
)

// CleanupFunc releases what a backend holds.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function
type Result struct {
	Backend ledger.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Remote API
	BaseURL string
	Timeout time.Duration

	// Memory ledger seed directory
	DataDirectory string
	Location      *time.Location
}

// Type selects where the ledger lives.
type Type string

const (
	RemoteBackend Type = "remote"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{RemoteBackend, MemoryBackend}
}
