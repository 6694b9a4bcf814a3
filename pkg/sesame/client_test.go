package sesame

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/sesame-client/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake server saw.
type recordedRequest struct {
	method   string
	path     string
	rawQuery string
	header   http.Header
	form     map[string]string
	body     string
}

// fakeSesame serves canned responses and records the last request.
type fakeSesame struct {
	t      *testing.T
	srv    *httptest.Server
	last   *recordedRequest
	calls  int
	status int
	body   string
}

func newFakeSesame(t *testing.T, status int, body string) *fakeSesame {
	t.Helper()
	f := &fakeSesame{t: t, status: status, body: body}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSesame) handle(w http.ResponseWriter, r *http.Request) {
	f.calls++
	rec := &recordedRequest{
		method:   r.Method,
		path:     r.URL.Path,
		rawQuery: r.URL.RawQuery,
		header:   r.Header.Clone(),
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("parse form: %v", err)
		}
		rec.form = map[string]string{}
		for k := range r.PostForm {
			rec.form[k] = r.PostForm.Get(k)
		}
	} else {
		raw, _ := io.ReadAll(r.Body)
		rec.body = string(raw)
	}
	f.last = rec

	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeSesame) client(repo string) *Client {
	return New(f.srv.URL+"/openrdf-sesame/", repo)
}

// offlineHTTP fails the test if any request is attempted.
type offlineHTTP struct {
	t *testing.T
}

func (o offlineHTTP) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	o.t.Fatalf("unexpected GET %s", url)
	return nil, nil
}

func (o offlineHTTP) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	o.t.Fatalf("unexpected %s %s", req.Method, req.URL)
	return nil, nil
}

func offlineClient(t *testing.T, repo string) *Client {
	return New("http://sesame.invalid/openrdf-sesame", repo, WithHTTPClient(offlineHTTP{t: t}))
}

func TestNewDefaults(t *testing.T) {
	c := New("", "")
	assert.Equal(t, DefaultURL, c.BaseURL())
	assert.Empty(t, c.Repository())

	c = New("http://example.org/sesame/", "repo")
	assert.Equal(t, "http://example.org/sesame", c.BaseURL())
	assert.Same(t, c, c.SetRepository("other"))
	assert.Equal(t, "other", c.Repository())
}

func TestListRepositories(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, twoColumnResult)

	res, err := f.client("").ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Headers())

	assert.Equal(t, http.MethodGet, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories", f.last.path)
	assert.Equal(t, "application/sparql-results+xml", f.last.header.Get("Accept"))
}

func TestListRepositoriesBadStatus(t *testing.T) {
	f := newFakeSesame(t, http.StatusInternalServerError, "boom")

	_, err := f.client("").ListRepositories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestTransportFailureIsBadStatusWithoutCode(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, "")
	c := f.client("repo")
	f.srv.Close()

	err := c.Clear(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindBadStatus, KindOf(err))
	assert.Zero(t, StatusCode(err))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestQuerySendsForm(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, twoColumnResult)

	res, err := f.client("people").Query(context.Background(), "SELECT ?a ?b WHERE {?a ?p ?b}", ResultSPARQLXML, LanguageSPARQL, true)
	require.NoError(t, err)

	rows, ok := res.Rows()
	require.True(t, ok)
	assert.Equal(t, "1", rows[0]["a"])

	assert.Equal(t, http.MethodPost, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/people", f.last.path)
	assert.Equal(t, "application/sparql-results+xml", f.last.header.Get("Accept"))
	assert.Equal(t, map[string]string{
		"query":   "SELECT ?a ?b WHERE {?a ?p ?b}",
		"queryLn": "sparql",
		"infer":   "true",
	}, f.last.form)
}

func TestQueryWithoutInference(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, twoColumnResult)

	_, err := f.client("people").Query(context.Background(), "select * from {x} p {y}", ResultSPARQLXML, LanguageSeRQL, false)
	require.NoError(t, err)
	assert.Equal(t, "serql", f.last.form["queryLn"])
	assert.Equal(t, "false", f.last.form["infer"])
}

func TestQueryValidationHappensOffline(t *testing.T) {
	c := offlineClient(t, "repo")
	ctx := context.Background()

	for _, lang := range []QueryLanguage{"", "SPARQL", "sql", "rql"} {
		_, err := c.Query(ctx, "q", ResultSPARQLXML, lang, true)
		assert.ErrorIs(t, err, ErrUnsupportedQueryLanguage, "language %q", lang)
	}

	for _, format := range []ResultFormat{ResultSPARQLJSON, ResultBinaryTable, ResultBoolean, "text/csv"} {
		_, err := c.Query(ctx, "q", format, LanguageSPARQL, true)
		assert.ErrorIs(t, err, ErrUnsupportedResultFormat, "format %q", format)

		_, err = c.Contexts(ctx, format)
		assert.ErrorIs(t, err, ErrUnsupportedResultFormat, "format %q", format)
	}
}

func TestAsk(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, `<sparql><head/><boolean>false</boolean></sparql>`)

	ok, err := f.client("repo").Ask(context.Background(), "ASK {?s ?p ?o}", LanguageSPARQL)
	require.NoError(t, err)
	assert.False(t, ok)

	f.body = twoColumnResult
	_, err = f.client("repo").Ask(context.Background(), "ASK {?s ?p ?o}", LanguageSPARQL)
	assert.ErrorIs(t, err, ErrParse)
}

func TestAppendAndOverwrite(t *testing.T) {
	f := newFakeSesame(t, http.StatusNoContent, "")
	c := f.client("repo")
	data := "<http://a> <http://b> <http://c> ."

	require.NoError(t, c.Append(context.Background(), data, "example/ctx", InputNTriples))
	assert.Equal(t, http.MethodPost, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/statements", f.last.path)
	assert.Equal(t, "context=%3Cexample%2Fctx%3E", f.last.rawQuery)
	assert.Equal(t, "text/plain", f.last.header.Get("Content-Type"))
	assert.Equal(t, data, f.last.body)

	require.NoError(t, c.Overwrite(context.Background(), data, NullContext, InputTurtle))
	assert.Equal(t, http.MethodPut, f.last.method)
	assert.Equal(t, "context=null", f.last.rawQuery)
	assert.Equal(t, "application/x-turtle", f.last.header.Get("Content-Type"))
}

func TestAppendRejectsUnsupportedInputFormat(t *testing.T) {
	c := offlineClient(t, "repo")
	for _, format := range []InputFormat{"", "application/ld+json", "text/turtle", "application/n-quads"} {
		assert.ErrorIs(t, c.Append(context.Background(), "x", NullContext, format), ErrUnsupportedInputFormat)
		assert.ErrorIs(t, c.Overwrite(context.Background(), "x", NullContext, format), ErrUnsupportedInputFormat)
	}
}

func TestScopedOperationsRequireRepository(t *testing.T) {
	ctx := context.Background()
	for _, repo := range []string{"", "  "} {
		c := offlineClient(t, repo)
		calls := map[string]error{
			"query":            errOf(c.Query(ctx, "q", ResultSPARQLXML, LanguageSPARQL, true)),
			"append":           c.Append(ctx, "x", NullContext, InputRDFXML),
			"overwrite":        c.Overwrite(ctx, "x", NullContext, InputRDFXML),
			"get namespace":    errOf(c.GetNamespace(ctx, "ex")),
			"set namespace":    c.SetNamespace(ctx, "ex", "http://example.org/"),
			"delete namespace": c.DeleteNamespace(ctx, "ex"),
			"namespaces":       errOf(c.Namespaces(ctx)),
			"contexts":         errOf(c.Contexts(ctx, ResultSPARQLXML)),
			"size":             errOf(c.Size(ctx, NullContext)),
			"clear":            c.Clear(ctx),
		}
		for name, err := range calls {
			assert.ErrorIs(t, err, ErrNoRepository, "%s with repository %q", name, repo)
		}
	}
}

func errOf(_ any, err error) error { return err }

func TestNamespaces(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, "http://xmlns.com/foaf/0.1/")
	c := f.client("repo")
	ctx := context.Background()

	ns, err := c.GetNamespace(ctx, "foaf")
	require.NoError(t, err)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/", ns)
	assert.Equal(t, http.MethodGet, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/namespaces/foaf", f.last.path)
	assert.Equal(t, "text/plain", f.last.header.Get("Accept"))

	f.status, f.body = http.StatusNoContent, ""
	require.NoError(t, c.SetNamespace(ctx, "ex", "http://example.org/"))
	assert.Equal(t, http.MethodPut, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/namespaces/ex", f.last.path)
	assert.Equal(t, "text/plain", f.last.header.Get("Content-Type"))
	assert.Equal(t, "http://example.org/", f.last.body)

	require.NoError(t, c.DeleteNamespace(ctx, "ex"))
	assert.Equal(t, http.MethodDelete, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/namespaces/ex", f.last.path)
}

func TestNamespaceValidation(t *testing.T) {
	c := offlineClient(t, "repo")
	ctx := context.Background()

	_, err := c.GetNamespace(ctx, "")
	assert.ErrorIs(t, err, ErrPrefixNotSpecified)
	assert.ErrorIs(t, c.SetNamespace(ctx, "", "http://example.org/"), ErrPrefixNotSpecified)
	assert.ErrorIs(t, c.SetNamespace(ctx, "ex", ""), ErrNamespaceNotSpecified)
	assert.ErrorIs(t, c.DeleteNamespace(ctx, ""), ErrPrefixNotSpecified)
}

func TestNamespaceList(t *testing.T) {
	body := `<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head><variable name="prefix"/><variable name="namespace"/></head>
  <results>
    <result>
      <binding name="prefix"><literal>foaf</literal></binding>
      <binding name="namespace"><literal>http://xmlns.com/foaf/0.1/</literal></binding>
    </result>
  </results>
</sparql>`
	f := newFakeSesame(t, http.StatusOK, body)

	list, err := f.client("repo").NamespaceList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "foaf:", list[0].Prefix)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/", list[0].Full)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/namespaces", f.last.path)
}

func TestContexts(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, twoColumnResult)

	res, err := f.client("repo").Contexts(context.Background(), ResultSPARQLXML)
	require.NoError(t, err)
	assert.True(t, res.HasRows())
	assert.Equal(t, http.MethodPost, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/contexts", f.last.path)
	assert.Equal(t, "application/sparql-results+xml", f.last.header.Get("Accept"))
}

func TestSize(t *testing.T) {
	f := newFakeSesame(t, http.StatusOK, "1234\n")
	c := f.client("repo")

	n, err := c.Size(context.Background(), NullContext)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, n)
	assert.Equal(t, http.MethodPost, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/size", f.last.path)
	assert.Equal(t, "context=null", f.last.rawQuery)
	assert.Equal(t, "text/plain", f.last.header.Get("Accept"))

	_, err = c.Size(context.Background(), "<http://x>")
	require.NoError(t, err)
	assert.Equal(t, "context=%3Chttp%3A%2F%2Fx%3E", f.last.rawQuery)

	f.body = "lots"
	_, err = c.Size(context.Background(), NullContext)
	assert.ErrorIs(t, err, ErrParse)
}

func TestClear(t *testing.T) {
	f := newFakeSesame(t, http.StatusNoContent, "")

	require.NoError(t, f.client("repo").Clear(context.Background()))
	assert.Equal(t, http.MethodDelete, f.last.method)
	assert.Equal(t, "/openrdf-sesame/repositories/repo/statements", f.last.path)
	assert.Empty(t, f.last.rawQuery)
}

func TestAppendFile(t *testing.T) {
	f := newFakeSesame(t, http.StatusNoContent, "")
	path := filepath.Join(t.TempDir(), "data.nt")
	require.NoError(t, os.WriteFile(path, []byte("<a> <b> <c> ."), 0o644))

	require.NoError(t, f.client("repo").AppendFile(context.Background(), path, "http://g", InputNTriples))
	assert.Equal(t, http.MethodPost, f.last.method)
	assert.Equal(t, "<a> <b> <c> .", f.last.body)
	assert.Equal(t, "context=%3Chttp%3A%2F%2Fg%3E", f.last.rawQuery)

	require.NoError(t, f.client("repo").OverwriteFile(context.Background(), path, NullContext, InputNTriples))
	assert.Equal(t, http.MethodPut, f.last.method)
}

func TestFileErrorsHappenOffline(t *testing.T) {
	c := offlineClient(t, "repo")
	ctx := context.Background()
	dir := t.TempDir()

	cases := []struct {
		name string
		path string
		want error
	}{
		{name: "empty", path: "", want: ErrFileNotSpecified},
		{name: "missing", path: filepath.Join(dir, "missing.rdf"), want: ErrFileNotFound},
		{name: "directory", path: dir, want: ErrFileNotReadable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, c.AppendFile(ctx, tc.path, NullContext, InputRDFXML), tc.want)
			assert.ErrorIs(t, c.OverwriteFile(ctx, tc.path, NullContext, InputRDFXML), tc.want)
		})
	}
}

func TestUnreadableFileIsNotReadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	c := offlineClient(t, "repo")
	path := filepath.Join(t.TempDir(), "locked.rdf")
	require.NoError(t, os.WriteFile(path, []byte("<rdf:RDF/>"), 0o600))
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o600) })

	err := c.AppendFile(context.Background(), path, NullContext, InputRDFXML)
	assert.ErrorIs(t, err, ErrFileNotReadable)
	assert.NotErrorIs(t, err, ErrFileNotFound)
}
