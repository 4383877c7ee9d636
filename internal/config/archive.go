package config

import (
	"errors"
	"fmt"
)

// Archive backends.
const (
	ArchiveNone = "none"
	ArchiveFS   = "fs"
	ArchiveGCS  = "gcs"
)

var (
	// ErrUnknownArchive is returned for an unrecognised ATLAS_ARCHIVE_TYPE.
	ErrUnknownArchive = errors.New("unknown ATLAS_ARCHIVE_TYPE")
	// ErrArchiveDirRequired is returned when the fs archive has no directory.
	ErrArchiveDirRequired = errors.New("ATLAS_ARCHIVE_DIR is required when ATLAS_ARCHIVE_TYPE is 'fs'")
	// ErrArchiveBucketRequired is returned when the gcs archive has no bucket.
	ErrArchiveBucketRequired = errors.New("ATLAS_ARCHIVE_BUCKET is required when ATLAS_ARCHIVE_TYPE is 'gcs'")
)

// ArchiveConfig selects where completed cycle reports are written.
type ArchiveConfig struct {
	Type   string `env:"ATLAS_ARCHIVE_TYPE" default:"none"`
	Dir    string `env:"ATLAS_ARCHIVE_DIR" default:"./atlas-reports"`
	Bucket string `env:"ATLAS_ARCHIVE_BUCKET"`
	Prefix string `env:"ATLAS_ARCHIVE_PREFIX" default:"cycle-reports"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	switch c.Type {
	case ArchiveNone:
	case ArchiveFS:
		if c.Dir == "" {
			return ErrArchiveDirRequired
		}
	case ArchiveGCS:
		if c.Bucket == "" {
			return ErrArchiveBucketRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownArchive, c.Type)
	}
	return nil
}
