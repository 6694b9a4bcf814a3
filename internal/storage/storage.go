package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps a local ledger of uploaded sources so unchanged data is not
// re-sent to the store.

// Store tracks upload fingerprints.
type Store interface {
	Close() error
	SeenUpload(fingerprint string) (bool, error)
	MarkUpload(fingerprint string) error
	ForgetPrefix(prefix string) (int, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	UploadTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultUploadTTL       = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = defaultUploadTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) SeenUpload(string) (bool, error)  { return false, nil }
func (noopStore) MarkUpload(string) error          { return nil }
func (noopStore) ForgetPrefix(string) (int, error) { return 0, nil }
