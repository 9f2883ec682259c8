// Package sink writes the converted IAMC table to an output target.
// Sinks are registered by type name in their init() functions, the same
// way database adapters register themselves.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/iamconv/internal/convert"
)

// Config holds the configuration for an output sink.
type Config struct {
	// Type specifies the sink type (e.g., "csv", "duckdb", "postgres")
	Type string `koanf:"type"`

	// Path is the output file for file-based sinks. Use "-" (or leave
	// empty) to write CSV to stdout.
	Path string `koanf:"path"`

	// Table is the target table name for database sinks.
	Table string `koanf:"table"`

	// Wide pivots years into columns (CSV sink only).
	Wide bool `koanf:"wide"`

	// Host is the hostname for network-based sinks
	Host string `koanf:"host"`

	// Port is the port number for network-based sinks
	Port int `koanf:"port"`

	// Database is the database name
	Database string `koanf:"database"`

	// Username for authentication
	Username string `koanf:"username"`

	// Password for authentication
	Password string `koanf:"password"`

	// Options contains additional sink-specific options
	Options map[string]string `koanf:"options"`
}

// Sink is the interface all output targets implement.
type Sink interface {
	// Open prepares the sink for writing.
	Open(ctx context.Context, cfg Config) error

	// Write writes the full output table to the target.
	Write(ctx context.Context, table *convert.Table) error

	// Close flushes and releases the sink's resources.
	Close() error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Sink)
)

// Register adds a sink factory to the registry.
// Called by sink implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Sink) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a sink instance for the configured type.
// The logger parameter is passed to the sink constructor (nil uses a discard logger).
func New(cfg Config, logger *slog.Logger) (Sink, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("sink type not specified")
	}

	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSinkError{Type: cfg.Type, Available: ListSinks()}
	}
	return factory(logger), nil
}

// ListSinks returns all registered sink names (sorted).
func ListSinks() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownSinkError is returned when an unknown sink type is requested.
type UnknownSinkError struct {
	Type      string
	Available []string
}

func (e *UnknownSinkError) Error() string {
	return fmt.Sprintf("unknown sink type %q\nAvailable sinks: %v\nHint: Check sink.type in iamconv.yaml", e.Type, e.Available)
}
