package store

import (
	"fmt"
	"path/filepath"

	"plurald/internal/config"
	"plurald/internal/proxy"
)

// NewStoreFromConfig creates a Store implementation based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig) (proxy.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		st, err := NewSQLiteStore(filepath.Join(cfg.DataDir, "plurald.db"))
		if err != nil {
			return nil, err
		}
		if err := st.MigrateUp(); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrating store: %w", err)
		}
		return st, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
