package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/sesame-client/internal/domain"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

// Package datasets loads the manifest of RDF sources the loader keeps in sync.

// Dataset is one RDF source bound to a repository context.
type Dataset struct {
	ID         string          `json:"id" yaml:"id"`
	Source     string          `json:"source" yaml:"source"`
	Context    string          `json:"context" yaml:"context"`
	Format     string          `json:"format" yaml:"format"`
	Mode       domain.LoadMode `json:"mode" yaml:"mode"`
	Repository string          `json:"repository" yaml:"repository"`
	Enabled    *bool           `json:"enabled" yaml:"enabled"`
}

type manifest struct {
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

// IsEnabled reports whether the dataset takes part in a sync. Datasets are enabled unless
// the manifest says otherwise.
func (d Dataset) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// InputFormat resolves the dataset format into a sesame input format.
func (d Dataset) InputFormat() (sesame.InputFormat, bool) {
	return sesame.ParseInputFormat(d.Format)
}

// Load reads and validates a dataset manifest from a YAML or JSON file.
func Load(path string) ([]Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("datasets file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read datasets file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes manifest bytes. ext picks the decoder; an empty ext tries YAML then JSON.
func Parse(data []byte, ext string) ([]Dataset, error) {
	m, err := decodeManifest(data, ext)
	if err != nil {
		return nil, err
	}
	if len(m.Datasets) == 0 {
		return nil, errors.New("datasets file contains no datasets entries")
	}

	seen := make(map[string]struct{}, len(m.Datasets))
	out := make([]Dataset, 0, len(m.Datasets))
	for i, d := range m.Datasets {
		d = sanitize(d)
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("dataset[%d]: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("duplicate dataset id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// Enabled filters out disabled datasets.
func Enabled(list []Dataset) []Dataset {
	out := make([]Dataset, 0, len(list))
	for _, d := range list {
		if d.IsEnabled() {
			out = append(out, d)
		}
	}
	return out
}

type unmarshalFn func([]byte, any) error

func decodeManifest(data []byte, ext string) (manifest, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		exts []string
		fn   unmarshalFn
	}{
		{name: "yaml", exts: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
		{name: "json", exts: []string{".json"}, fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && !contains(d.exts, ext) {
			continue
		}
		var m manifest
		if err := d.fn(data, &m); err != nil {
			errs = append(errs, fmt.Errorf("decode %s datasets: %w", d.name, err))
			continue
		}
		return m, nil
	}
	if len(errs) == 0 {
		return manifest{}, fmt.Errorf("datasets file extension %q not recognized (expected YAML or JSON)", ext)
	}
	return manifest{}, errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sanitize(d Dataset) Dataset {
	d.ID = strings.TrimSpace(d.ID)
	d.Source = strings.TrimSpace(d.Source)
	d.Context = strings.TrimSpace(d.Context)
	d.Format = strings.TrimSpace(d.Format)
	d.Repository = strings.TrimSpace(d.Repository)
	d.Mode = domain.LoadMode(strings.ToLower(strings.TrimSpace(string(d.Mode))))

	if d.Context == "" {
		d.Context = sesame.NullContext
	}
	if d.Mode == "" {
		d.Mode = domain.ModeAppend
	}
	if d.Format == "" && d.Source != "" {
		if f, ok := sesame.InputFormatForPath(sourcePath(d.Source)); ok {
			d.Format = string(f)
		}
	}
	return d
}

func validate(d Dataset) error {
	if d.ID == "" {
		return errors.New("id is required")
	}
	if d.Source == "" {
		return fmt.Errorf("source is required for dataset %q", d.ID)
	}
	if d.Format == "" {
		return fmt.Errorf("format is required for dataset %q (cannot infer from %q)", d.ID, d.Source)
	}
	if _, ok := d.InputFormat(); !ok {
		return fmt.Errorf("unsupported format %q for dataset %q", d.Format, d.ID)
	}
	switch d.Mode {
	case domain.ModeAppend, domain.ModeOverwrite:
	default:
		return fmt.Errorf("unsupported mode %q for dataset %q", d.Mode, d.ID)
	}
	return nil
}

// sourcePath drops the query and fragment of remote sources so the extension can be read.
func sourcePath(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Path
	}
	return source
}
