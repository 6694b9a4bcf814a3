package loader

import (
	"context"

	"github.com/samvad-hq/sesame-client/pkg/publishers"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

// Target is the slice of *sesame.Client the loader drives for one repository.
type Target interface {
	ReadSource(ctx context.Context, path string, format sesame.InputFormat) ([]byte, error)
	Append(ctx context.Context, data, graph string, format sesame.InputFormat) error
	Overwrite(ctx context.Context, data, graph string, format sesame.InputFormat) error
	Size(ctx context.Context, graph string) (int64, error)
}

// Connector returns a Target scoped to repository.
type Connector func(repository string) Target

// EventPublisher publishes load events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// UploadLedger remembers which sources were already uploaded.
type UploadLedger interface {
	SeenUpload(fingerprint string) (bool, error)
	MarkUpload(fingerprint string) error
}
