package sesame

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/sesame-client/pkg/httpclient"
)

const (
	// DefaultURL is the conventional local Sesame endpoint.
	DefaultURL = "http://localhost:8080/openrdf-sesame"

	// DefaultTimeout bounds each request when no HTTP client is supplied.
	DefaultTimeout = 30 * time.Second

	maxErrorSnippet = 512
)

// Client talks to a Sesame server over its HTTP protocol. Every call is a single
// blocking round trip.
//
// A Client is not safe for concurrent use when SetRepository is called while other
// requests are in flight; use one Client per goroutine or synchronise externally.
type Client struct {
	baseURL    string
	repository string
	http       httpclient.Client
	timeout    time.Duration
	log        Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default resty transport.
func WithHTTPClient(c httpclient.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(l Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// New creates a client for the server at baseURL (DefaultURL when empty) with repository
// selected. An empty repository leaves no repository selected.
func New(baseURL, repository string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultURL
	}

	c := &Client{
		baseURL:    baseURL,
		repository: repository,
		timeout:    DefaultTimeout,
		log:        noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout)
	}
	return c
}

// SetRepository selects the repository used by every scoped operation.
func (c *Client) SetRepository(repository string) *Client {
	c.repository = repository
	return c
}

// Repository returns the selected repository, empty if none.
func (c *Client) Repository() string { return c.repository }

// BaseURL returns the server connection URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListRepositories returns the repositories available on the server.
func (c *Client) ListRepositories(ctx context.Context) (*Result, error) {
	resp, err := c.do(ctx, "list repositories", httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + "/repositories",
		Headers: map[string]string{"Accept": string(ResultSPARQLXML)},
	})
	if err != nil {
		return nil, err
	}
	return NewResult(resp.Body())
}

// Query runs a SPARQL or SeRQL query against the selected repository.
func (c *Client) Query(ctx context.Context, query string, format ResultFormat, lang QueryLanguage, infer bool) (*Result, error) {
	endpoint, err := c.repositoryURL()
	if err != nil {
		return nil, err
	}
	if err := checkQueryLanguage(lang); err != nil {
		return nil, err
	}
	if err := checkResultFormat(format); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "run query", httpclient.Request{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: map[string]string{"Accept": string(ResultSPARQLXML)},
		Form: map[string]string{
			"query":   query,
			"queryLn": string(lang),
			"infer":   strconv.FormatBool(infer),
		},
	})
	if err != nil {
		return nil, err
	}
	return NewResult(resp.Body())
}

// Ask runs a boolean query and returns its answer.
func (c *Client) Ask(ctx context.Context, query string, lang QueryLanguage) (bool, error) {
	res, err := c.Query(ctx, query, ResultSPARQLXML, lang, true)
	if err != nil {
		return false, err
	}
	value, ok := res.Boolean()
	if !ok {
		return false, newError(KindParse, "response is not a boolean result")
	}
	return value, nil
}

// Append adds statements in the given format to the context graph (NullContext for the
// default graph).
func (c *Client) Append(ctx context.Context, data, graph string, format InputFormat) error {
	return c.sendStatements(ctx, http.MethodPost, "append data", data, graph, format)
}

// Overwrite replaces the statements of the context graph with data.
func (c *Client) Overwrite(ctx context.Context, data, graph string, format InputFormat) error {
	return c.sendStatements(ctx, http.MethodPut, "overwrite data", data, graph, format)
}

// AppendFile reads a local file or http(s) URL and appends its contents.
func (c *Client) AppendFile(ctx context.Context, path, graph string, format InputFormat) error {
	data, err := c.ReadSource(ctx, path, format)
	if err != nil {
		return err
	}
	return c.Append(ctx, string(data), graph, format)
}

// OverwriteFile reads a local file or http(s) URL and overwrites graph with it.
func (c *Client) OverwriteFile(ctx context.Context, path, graph string, format InputFormat) error {
	data, err := c.ReadSource(ctx, path, format)
	if err != nil {
		return err
	}
	return c.Overwrite(ctx, string(data), graph, format)
}

func (c *Client) sendStatements(ctx context.Context, method, op, data, graph string, format InputFormat) error {
	endpoint, err := c.repositoryURL("statements")
	if err != nil {
		return err
	}
	encoded := EncodeContext(graph)
	if err := checkInputFormat(format); err != nil {
		return err
	}

	_, err = c.do(ctx, op, httpclient.Request{
		Method:  method,
		URL:     endpoint + "?context=" + encoded,
		Headers: map[string]string{"Content-Type": string(format)},
		Body:    []byte(data),
	})
	return err
}

// Contexts lists the context identifiers of the selected repository.
func (c *Client) Contexts(ctx context.Context, format ResultFormat) (*Result, error) {
	endpoint, err := c.repositoryURL("contexts")
	if err != nil {
		return nil, err
	}
	if err := checkResultFormat(format); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "list contexts", httpclient.Request{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: map[string]string{"Accept": string(ResultSPARQLXML)},
	})
	if err != nil {
		return nil, err
	}
	return NewResult(resp.Body())
}

// Size returns the number of statements in graph. A body that is not an integer
// yields a KindParse error.
func (c *Client) Size(ctx context.Context, graph string) (int64, error) {
	endpoint, err := c.repositoryURL("size")
	if err != nil {
		return 0, err
	}

	resp, err := c.do(ctx, "read repository size", httpclient.Request{
		Method:  http.MethodPost,
		URL:     endpoint + "?context=" + EncodeContext(graph),
		Headers: map[string]string{"Accept": mimeTextPlain},
	})
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(resp.Body()))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, wrapError(KindParse, "parse repository size", err)
	}
	return n, nil
}

// Clear removes every statement from every context of the selected repository.
func (c *Client) Clear(ctx context.Context) error {
	endpoint, err := c.repositoryURL("statements")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "clear repository", httpclient.Request{
		Method: http.MethodDelete,
		URL:    endpoint,
	})
	return err
}

// repositoryURL builds {base}/repositories/{repo}[/parts...] or fails when no repository
// is selected.
func (c *Client) repositoryURL(parts ...string) (string, error) {
	if strings.TrimSpace(c.repository) == "" {
		return "", newError(KindNoRepository, "no repository selected, please supply an available repository")
	}
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/repositories/")
	b.WriteString(url.PathEscape(c.repository))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String(), nil
}

// do executes req and maps transport failures and non-2xx statuses to KindBadStatus.
func (c *Client) do(ctx context.Context, op string, req httpclient.Request) (httpclient.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.log.DebugObj("sesame request", "sesame_request", map[string]any{
		"operation":  op,
		"method":     req.Method,
		"url":        req.URL,
		"repository": c.repository,
	})

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.log.ErrorObj("sesame request failed", "sesame_error", map[string]any{
			"operation": op,
			"url":       req.URL,
			"error":     err.Error(),
		})
		return nil, wrapError(KindBadStatus, fmt.Sprintf("failed to %s", op), err)
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		snippet := responseSnippet(resp.Body())
		c.log.WarnObj("sesame responded with error status", "sesame_status", map[string]any{
			"operation": op,
			"url":       req.URL,
			"status":    code,
			"body":      snippet,
		})
		return nil, &Error{
			Kind:       KindBadStatus,
			Message:    fmt.Sprintf("failed to %s, HTTP response error: %d", op, code),
			StatusCode: code,
			Err:        fmt.Errorf("status %d: %s", code, snippet),
		}
	}
	return resp, nil
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
