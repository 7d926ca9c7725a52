package storage

import (
	"fmt"
	"log/slog"

	"mercator-hq/concierge/pkg/audit"
	"mercator-hq/concierge/pkg/config"
)

var (
	_ audit.Storage = (*MemoryStorage)(nil)
	_ audit.Storage = (*SQLiteStorage)(nil)
)

// Open creates the storage backend selected by configuration.
func Open(cfg config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "", "sqlite":
		s, err := NewSQLiteStorage(cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}
