package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/sesame-client/internal/datasets"
	"github.com/samvad-hq/sesame-client/internal/domain"
	"github.com/samvad-hq/sesame-client/pkg/publishers"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

type call struct {
	op    string
	repo  string
	graph string
	data  string
}

type fakeTarget struct {
	repo    string
	sources map[string]string
	size    int64
	fail    error
	calls   *[]call
}

func (f *fakeTarget) ReadSource(_ context.Context, path string, _ sesame.InputFormat) ([]byte, error) {
	body, ok := f.sources[path]
	if !ok {
		return nil, errors.New("missing source")
	}
	return []byte(body), nil
}

func (f *fakeTarget) Append(_ context.Context, data, graph string, _ sesame.InputFormat) error {
	*f.calls = append(*f.calls, call{op: "append", repo: f.repo, graph: graph, data: data})
	return f.fail
}

func (f *fakeTarget) Overwrite(_ context.Context, data, graph string, _ sesame.InputFormat) error {
	*f.calls = append(*f.calls, call{op: "overwrite", repo: f.repo, graph: graph, data: data})
	return f.fail
}

func (f *fakeTarget) Size(context.Context, string) (int64, error) {
	return f.size, nil
}

type memLedger map[string]bool

func (m memLedger) SeenUpload(fp string) (bool, error) { return m[fp], nil }
func (m memLedger) MarkUpload(fp string) error         { m[fp] = true; return nil }

type recordingPublisher struct {
	events []publishers.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	r.events = append(r.events, evt)
	return 1, nil
}

func newHarness(sources map[string]string, fail error) (*Service, *[]call, *recordingPublisher, memLedger) {
	calls := &[]call{}
	pub := &recordingPublisher{}
	ledger := memLedger{}
	connect := func(repo string) Target {
		return &fakeTarget{repo: repo, sources: sources, size: 7, fail: fail, calls: calls}
	}
	svc := NewService(connect, "kb", pub, ledger, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, calls, pub, ledger
}

func dataset(id, source string, mode domain.LoadMode, repo string) datasets.Dataset {
	return datasets.Dataset{
		ID:         id,
		Source:     source,
		Context:    "<http://example.org/" + id + ">",
		Format:     string(sesame.InputTurtle),
		Mode:       mode,
		Repository: repo,
	}
}

func TestRunLoadsPublishesAndMarks(t *testing.T) {
	svc, calls, pub, ledger := newHarness(map[string]string{"a.ttl": "<a> <b> <c> ."}, nil)

	outcomes, err := svc.Run(context.Background(), []datasets.Dataset{
		dataset("people", "a.ttl", domain.ModeAppend, ""),
		dataset("places", "a.ttl", domain.ModeOverwrite, "geo"),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != 2 || outcomes[0].Status != StatusLoaded || outcomes[1].Status != StatusLoaded {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}

	if len(*calls) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(*calls))
	}
	if c := (*calls)[0]; c.op != "append" || c.repo != "kb" || c.graph != "<http://example.org/people>" {
		t.Fatalf("unexpected first call: %+v", c)
	}
	if c := (*calls)[1]; c.op != "overwrite" || c.repo != "geo" {
		t.Fatalf("unexpected second call: %+v", c)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Type != publishers.EventDatasetLoaded || evt.Statements != 7 || evt.Repository != "kb" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if !strings.HasPrefix(evt.Fingerprint, LedgerPrefix("kb")) {
		t.Fatalf("fingerprint should be repository scoped: %s", evt.Fingerprint)
	}
	if !ledger[evt.Fingerprint] {
		t.Fatalf("expected fingerprint to be marked")
	}
}

func TestRunSkipsUnchangedSources(t *testing.T) {
	svc, calls, pub, _ := newHarness(map[string]string{"a.ttl": "<a> <b> <c> ."}, nil)
	list := []datasets.Dataset{dataset("people", "a.ttl", domain.ModeAppend, "")}

	if _, err := svc.Run(context.Background(), list); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	outcomes, err := svc.Run(context.Background(), list)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if outcomes[0].Status != StatusSkipped {
		t.Fatalf("expected skip on unchanged source, got %s", outcomes[0].Status)
	}
	if len(*calls) != 1 || len(pub.events) != 1 {
		t.Fatalf("expected a single upload and event, got %d calls %d events", len(*calls), len(pub.events))
	}
}

func TestRunJoinsErrorsAndContinues(t *testing.T) {
	svc, calls, _, ledger := newHarness(map[string]string{"a.ttl": "data"}, nil)

	outcomes, err := svc.Run(context.Background(), []datasets.Dataset{
		dataset("missing", "nope.ttl", domain.ModeAppend, ""),
		dataset("ok", "a.ttl", domain.ModeAppend, ""),
	})
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected joined error naming the failed dataset, got %v", err)
	}
	if outcomes[0].Status != StatusFailed || outcomes[1].Status != StatusLoaded {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if len(*calls) != 1 || len(ledger) != 1 {
		t.Fatalf("expected the healthy dataset to load")
	}
}

func TestRunDoesNotMarkFailedUploads(t *testing.T) {
	svc, _, pub, ledger := newHarness(map[string]string{"a.ttl": "data"}, errors.New("HTTP 500"))

	if _, err := svc.Run(context.Background(), []datasets.Dataset{dataset("people", "a.ttl", domain.ModeAppend, "")}); err == nil {
		t.Fatalf("expected upload error")
	}
	if len(ledger) != 0 || len(pub.events) != 0 {
		t.Fatalf("failed upload must not be marked or published")
	}
}

func TestRunRequiresRepository(t *testing.T) {
	svc, _, _, _ := newHarness(map[string]string{"a.ttl": "data"}, nil)
	svc.defaultRepo = ""

	if _, err := svc.Run(context.Background(), []datasets.Dataset{dataset("people", "a.ttl", domain.ModeAppend, "")}); err == nil {
		t.Fatalf("expected error when no repository is configured")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	svc, calls, _, _ := newHarness(map[string]string{"a.ttl": "data"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, []datasets.Dataset{dataset("people", "a.ttl", domain.ModeAppend, "")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("no upload expected after cancellation")
	}
}

func TestFingerprintDependsOnTarget(t *testing.T) {
	body := []byte("<a> <b> <c> .")
	a := Fingerprint("kb", "null", "text/plain", body)
	if a != Fingerprint("kb", "null", "text/plain", body) {
		t.Fatalf("fingerprint must be stable")
	}
	if a == Fingerprint("kb", "<http://g>", "text/plain", body) {
		t.Fatalf("fingerprint must depend on context")
	}
	if a == Fingerprint("other", "null", "text/plain", body) {
		t.Fatalf("fingerprint must depend on repository")
	}
}
