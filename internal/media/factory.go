package media

import (
	"context"
	"fmt"

	"plurald/internal/config"
)

// NewStoreFromConfig creates a media Store implementation based on the media config type.
func NewStoreFromConfig(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem media store")
		}
		return NewFileSystemStore(cfg.FSRoot, cfg.PublicBase)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown media type: %s", cfg.Type)
	}
}
