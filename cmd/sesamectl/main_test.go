package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const reposXML = `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head><variable name="id"/><variable name="uri"/></head>
  <results>
    <result>
      <binding name="id"><literal>SYSTEM</literal></binding>
      <binding name="uri"><uri>http://localhost/repositories/SYSTEM</uri></binding>
    </result>
  </results>
</sparql>`

type recorded struct {
	method      string
	path        string
	contentType string
	body        string
}

func newServer(t *testing.T, requests *[]recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*requests = append(*requests, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		switch r.URL.Path {
		case "/repositories":
			w.Header().Set("Content-Type", "application/sparql-results+xml")
			_, _ = w.Write([]byte(reposXML))
		case "/repositories/kb/size":
			_, _ = w.Write([]byte("42"))
		case "/repositories/kb/statements":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--no-color"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestReposTable(t *testing.T) {
	var reqs []recorded
	srv := newServer(t, &reqs)

	code, out, errOut := execute(t, "", "--url", srv.URL, "repos")
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[0], "uri") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "SYSTEM") || !strings.Contains(lines[1], "<http://localhost/repositories/SYSTEM>") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestReposJSON(t *testing.T) {
	var reqs []recorded
	srv := newServer(t, &reqs)

	code, out, errOut := execute(t, "", "--url", srv.URL, "-o", "json", "repos")
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, `"headers"`) || !strings.Contains(out, `"type": "uri"`) {
		t.Fatalf("unexpected json output: %s", out)
	}
}

func TestSizeYAML(t *testing.T) {
	var reqs []recorded
	srv := newServer(t, &reqs)

	code, out, errOut := execute(t, "", "--url", srv.URL, "--repo", "kb", "--output", "yaml", "size", "--context", "http://ex/g")
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "size: 42" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAppendFromStdin(t *testing.T) {
	var reqs []recorded
	srv := newServer(t, &reqs)

	data := "<http://ex/a> <http://ex/b> <http://ex/c> .\n"
	code, _, errOut := execute(t, data, "--url", srv.URL, "-r", "kb", "append", "--format", "nt", "-")
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.method != http.MethodPost || req.path != "/repositories/kb/statements" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.HasPrefix(req.contentType, "text/plain") || req.body != data {
		t.Fatalf("unexpected upload %q %q", req.contentType, req.body)
	}
}

func TestValidationFailuresExitTwo(t *testing.T) {
	var reqs []recorded
	srv := newServer(t, &reqs)

	cases := map[string][]string{
		"unknown command":   {"--url", srv.URL, "frobnicate"},
		"no repository":     {"--url", srv.URL, "--repo", "", "size"},
		"clear needs --yes": {"--url", srv.URL, "--repo", "kb", "clear"},
		"bad output":        {"--url", srv.URL, "-o", "xml", "repos"},
		"unknown format":    {"--url", srv.URL, "--repo", "kb", "append", "data.csv"},
		"bad language":      {"--url", srv.URL, "--repo", "kb", "query", "--lang", "sql", "SELECT 1"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, errOut := execute(t, "", args...)
			if code != exitValidation {
				t.Fatalf("expected exit %d, got %d (stderr: %s)", exitValidation, code, errOut)
			}
			if !strings.Contains(errOut, "error:") {
				t.Fatalf("expected error message, got %q", errOut)
			}
		})
	}
	if len(reqs) != 0 {
		t.Fatalf("validation failures must not reach the server, got %d requests", len(reqs))
	}
}
