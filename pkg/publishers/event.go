package publishers

import (
	"time"

	"github.com/samvad-hq/sesame-client/internal/domain"
)

// EventDatasetLoaded is the type of events emitted after a dataset upload.
const EventDatasetLoaded = "dataset.loaded"

// Event represents the payload published downstream.
type Event struct {
	Type        string    `json:"type"`
	DatasetID   string    `json:"dataset_id"`
	Repository  string    `json:"repository"`
	Context     string    `json:"context"`
	Source      string    `json:"source"`
	Format      string    `json:"format"`
	Mode        string    `json:"mode"`
	Fingerprint string    `json:"fingerprint"`
	Bytes       int       `json:"bytes"`
	Statements  int64     `json:"statements"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// NewEvent constructs an Event for a completed upload.
func NewEvent(up domain.Upload) Event {
	loadedAt := up.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	return Event{
		Type:        EventDatasetLoaded,
		DatasetID:   up.DatasetID,
		Repository:  up.Repository,
		Context:     up.Context,
		Source:      up.Source,
		Format:      up.Format,
		Mode:        string(up.Mode),
		Fingerprint: up.Fingerprint,
		Bytes:       up.Bytes,
		Statements:  up.Statements,
		LoadedAt:    loadedAt.UTC(),
	}
}

// attributes returns the non-empty routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 3)
	for k, v := range map[string]string{
		"event_type": e.Type,
		"dataset_id": e.DatasetID,
		"repository": e.Repository,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}
