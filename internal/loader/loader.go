package loader

import (
	"context"
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/sesame-client/internal/datasets"
	"github.com/samvad-hq/sesame-client/internal/domain"
	"github.com/samvad-hq/sesame-client/internal/logger"
	"github.com/samvad-hq/sesame-client/pkg/publishers"
)

// Status reports what happened to a dataset during a pass.
type Status string

const (
	StatusLoaded  Status = "loaded"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the per-dataset result of a pass.
type Outcome struct {
	DatasetID string
	Status    Status
	Upload    domain.Upload
	Err       error
}

// Service pushes datasets into their repositories.
type Service struct {
	connect     Connector
	defaultRepo string
	publisher   EventPublisher
	ledger      UploadLedger
	log         logger.Logger
	now         func() time.Time
}

// NewService wires a loader. defaultRepo applies to datasets that name no repository;
// publisher and ledger may be nil.
func NewService(connect Connector, defaultRepo string, publisher EventPublisher, ledger UploadLedger, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		connect:     connect,
		defaultRepo: strings.TrimSpace(defaultRepo),
		publisher:   publisher,
		ledger:      ledger,
		log:         log,
		now:         time.Now,
	}
}

// Run loads every dataset in order. Failures are collected and joined; a cancelled ctx
// stops the pass before the next dataset.
func (s *Service) Run(ctx context.Context, list []datasets.Dataset) ([]Outcome, error) {
	if s == nil || s.connect == nil {
		return nil, fmt.Errorf("loader service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no datasets configured for loading")
	}

	outcomes := make([]Outcome, 0, len(list))
	var errs []error
	for _, d := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		out := s.loadDataset(ctx, d)
		outcomes = append(outcomes, out)
		if out.Err != nil {
			errs = append(errs, out.Err)
			s.log.ErrorObj("dataset load failed", "dataset_error", map[string]any{
				"dataset_id": d.ID,
				"error":      out.Err.Error(),
			})
		}
	}
	return outcomes, errors.Join(errs...)
}

func (s *Service) loadDataset(ctx context.Context, d datasets.Dataset) Outcome {
	out := Outcome{DatasetID: d.ID, Status: StatusFailed}
	fail := func(err error) Outcome {
		out.Err = err
		return out
	}

	repo := d.Repository
	if repo == "" {
		repo = s.defaultRepo
	}
	if repo == "" {
		return fail(fmt.Errorf("dataset %s: no repository configured", d.ID))
	}
	format, ok := d.InputFormat()
	if !ok {
		return fail(fmt.Errorf("dataset %s: unsupported format %q", d.ID, d.Format))
	}

	target := s.connect(repo)
	body, err := target.ReadSource(ctx, d.Source, format)
	if err != nil {
		return fail(fmt.Errorf("read dataset %s: %w", d.ID, err))
	}

	up := domain.Upload{
		DatasetID:   d.ID,
		Repository:  repo,
		Context:     d.Context,
		Source:      d.Source,
		Format:      string(format),
		Mode:        d.Mode,
		Fingerprint: Fingerprint(repo, d.Context, string(format), body),
		Bytes:       len(body),
	}
	out.Upload = up

	if s.ledger != nil {
		seen, err := s.ledger.SeenUpload(up.Fingerprint)
		if err != nil {
			s.log.WarnObj("upload ledger lookup failed", "ledger_error", map[string]any{
				"dataset_id": d.ID,
				"error":      err.Error(),
			})
		} else if seen {
			s.log.DebugObj("dataset unchanged; skipping upload", "dataset_skip", map[string]any{
				"dataset_id":  d.ID,
				"fingerprint": up.Fingerprint,
			})
			out.Status = StatusSkipped
			return out
		}
	}

	if d.Mode == domain.ModeOverwrite {
		err = target.Overwrite(ctx, string(body), d.Context, format)
	} else {
		err = target.Append(ctx, string(body), d.Context, format)
	}
	if err != nil {
		return fail(fmt.Errorf("%s dataset %s: %w", d.Mode, d.ID, err))
	}

	size, err := target.Size(ctx, d.Context)
	if err != nil {
		s.log.WarnObj("context size unavailable", "dataset_size_error", map[string]any{
			"dataset_id": d.ID,
			"error":      err.Error(),
		})
		size = -1
	}
	up.Statements = size
	up.LoadedAt = s.now().UTC()
	out.Upload = up
	out.Status = StatusLoaded

	s.log.InfoObj("dataset loaded", "dataset_result", map[string]any{
		"dataset_id": d.ID,
		"repository": repo,
		"context":    d.Context,
		"mode":       d.Mode,
		"bytes":      up.Bytes,
		"statements": up.Statements,
	})

	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, publishers.NewEvent(up)); err != nil {
			s.log.WarnObj("load event publish failed", "publish_error", map[string]any{
				"dataset_id": d.ID,
				"error":      err.Error(),
			})
		}
	}

	if s.ledger != nil {
		if err := s.ledger.MarkUpload(up.Fingerprint); err != nil {
			s.log.WarnObj("upload ledger write failed", "ledger_error", map[string]any{
				"dataset_id": d.ID,
				"error":      err.Error(),
			})
		}
	}
	return out
}

// Fingerprint identifies an upload as "<repository>/<sha1>" so ledger entries can be
// dropped per repository.
func Fingerprint(repository, graph, format string, body []byte) string {
	h := sha1.New()
	h.Write([]byte(repository))
	h.Write([]byte{0})
	h.Write([]byte(graph))
	h.Write([]byte{0})
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(body)
	return repository + "/" + hex.EncodeToString(h.Sum(nil))
}

// LedgerPrefix is the fingerprint prefix shared by every upload into repository.
func LedgerPrefix(repository string) string {
	return repository + "/"
}
