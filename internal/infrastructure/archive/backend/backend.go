// Package backend opens the configured cycle report archive.
package backend

import (
	"context"
	"fmt"

	"github.com/rezkam/atlas/internal/config"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
	"github.com/rezkam/atlas/internal/infrastructure/archive/fs"
	"github.com/rezkam/atlas/internal/infrastructure/archive/gcs"
)

// Open returns the archive selected by cfg and a close func.
// For ArchiveNone it returns a nil archive.
func Open(ctx context.Context, cfg config.ArchiveConfig) (archive.Archive, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case config.ArchiveNone, "":
		return nil, noop, nil
	case config.ArchiveFS:
		store, err := fs.NewStore(cfg.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open report directory: %w", err)
		}
		return store, noop, nil
	case config.ArchiveGCS:
		store, err := gcs.NewStore(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open report bucket: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownArchive, cfg.Type)
	}
}
