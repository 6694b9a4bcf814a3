package domain

import "time"

// Domain contains core models shared by the loader, publishers and CLI.

// LoadMode selects how a dataset reaches the repository.
type LoadMode string

const (
	ModeAppend    LoadMode = "append"
	ModeOverwrite LoadMode = "overwrite"
)

// Upload describes one dataset pushed into a repository.
type Upload struct {
	DatasetID   string
	Repository  string
	Context     string
	Source      string
	Format      string
	Mode        LoadMode
	Fingerprint string
	Bytes       int
	Statements  int64
	LoadedAt    time.Time
}
