// Package blob implements the blob storage backends used for payloads
// too large to embed in the document store. Each backend returns a URI
// that the pipeline records in place of the raw bytes.
package blob

import (
	"context"
	"fmt"

	"github.com/askthws/harvester/internal/harvest"
)

// Backend names accepted by Open.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// Config captures the parameters for selecting and wiring a blob backend.
type Config struct {
	// Backend selects the storage implementation: local, memory, or gcs.
	Backend string `mapstructure:"backend"`
	// BaseDir is the root directory for the local backend.
	BaseDir string `mapstructure:"base_dir"`
	// GCSBucket is the bucket name for the gcs backend.
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// Open constructs the blob store named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (harvest.BlobStore, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocalStore(cfg.BaseDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendGCS:
		return NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
