package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/sesame-client/internal/config"
	"github.com/samvad-hq/sesame-client/internal/datasets"
	"github.com/samvad-hq/sesame-client/internal/loader"
	"github.com/samvad-hq/sesame-client/internal/logger"
	"github.com/samvad-hq/sesame-client/internal/storage"
	"github.com/samvad-hq/sesame-client/pkg/httpclient"
	"github.com/samvad-hq/sesame-client/pkg/publishers"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

// Syncer keeps the datasets manifest loaded into Sesame. It owns the upload ledger and the
// publisher fanout and releases both when Run returns.
type Syncer struct {
	cfg          *config.Config
	datasets     []datasets.Dataset
	fanout       *publishers.Fanout
	loader       *loader.Service
	syncInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewSyncer builds a syncer runtime from config files.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	list, err := datasets.Load(cfg.DatasetsFile)
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	list = datasets.Enabled(list)
	ids := make([]string, 0, len(list))
	for _, d := range list {
		ids = append(ids, d.ID)
	}
	log.InfoObj("datasets manifest loaded", "datasets_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		UploadTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"upload_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Syncer{
		cfg:          cfg,
		datasets:     list,
		fanout:       fanout,
		loader:       loader.NewService(NewConnector(cfg, log), cfg.SesameRepository, fanout, store, log),
		syncInterval: cfg.SyncInterval,
		log:          log,
		store:        store,
	}, nil
}

// NewConnector returns a loader.Connector that scopes clients to a repository while
// sharing one instrumented transport.
func NewConnector(cfg *config.Config, log logger.Logger) loader.Connector {
	transport := httpclient.NewInstrumented(httpclient.NewRestyClient(cfg.HTTPTimeout))
	return func(repository string) loader.Target {
		return sesame.New(cfg.SesameURL, repository,
			sesame.WithHTTPClient(transport),
			sesame.WithLogger(log),
		)
	}
}

// buildFanout loads the publishers file. An empty path disables event publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured; load events disabled", "publishers_file", path)
		return publishers.NewFanout(nil, log), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs, log), nil
}

// Run performs one sync pass and, when a sync interval is configured, repeats it until ctx
// is cancelled. The error of a single pass is returned only when no interval is set.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.loader == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	defer s.close()

	if len(s.datasets) == 0 {
		s.log.WarnObj("no enabled datasets; nothing to sync", "datasets_file", s.cfg.DatasetsFile)
		return nil
	}

	s.log.InfoObj("sync starting", "sync_state", map[string]any{
		"datasets_count":   len(s.datasets),
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.syncInterval.String(),
	})

	err := s.runOnce(ctx)
	if s.syncInterval <= 0 {
		return err
	}
	if err != nil {
		s.log.ErrorObj("initial sync failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single pass across all enabled datasets.
func (s *Syncer) runOnce(ctx context.Context) error {
	start := time.Now()
	outcomes, err := s.loader.Run(ctx, s.datasets)

	counts := map[loader.Status]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	s.log.InfoObj("sync pass completed", "sync_meta", map[string]any{
		"loaded":     counts[loader.StatusLoaded],
		"skipped":    counts[loader.StatusSkipped],
		"failed":     counts[loader.StatusFailed],
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return err
}

// close releases the ledger and publisher clients, logging any errors encountered.
func (s *Syncer) close() {
	if err := s.fanout.Close(); err != nil {
		s.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
