package sesame

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cayleygraph/quad/voc"
	"github.com/samvad-hq/sesame-client/pkg/httpclient"
)

// GetNamespace returns the namespace URI bound to prefix.
func (c *Client) GetNamespace(ctx context.Context, prefix string) (string, error) {
	endpoint, err := c.namespaceURL(prefix)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, "get namespace", httpclient.Request{
		Method:  http.MethodGet,
		URL:     endpoint,
		Headers: map[string]string{"Accept": mimeTextPlain},
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body()), nil
}

// SetNamespace binds prefix to namespace.
func (c *Client) SetNamespace(ctx context.Context, prefix, namespace string) error {
	endpoint, err := c.namespaceURL(prefix)
	if err != nil {
		return err
	}
	if namespace == "" {
		return newError(KindNamespaceNotSpecified, "namespace not specified, please supply a namespace")
	}

	_, err = c.do(ctx, "set namespace", httpclient.Request{
		Method:  http.MethodPut,
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": mimeTextPlain},
		Body:    []byte(namespace),
	})
	return err
}

// DeleteNamespace removes the binding for prefix.
func (c *Client) DeleteNamespace(ctx context.Context, prefix string) error {
	endpoint, err := c.namespaceURL(prefix)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "delete namespace", httpclient.Request{
		Method: http.MethodDelete,
		URL:    endpoint,
	})
	return err
}

// Namespaces lists every prefix binding of the selected repository. The result has the
// variables prefix and namespace.
func (c *Client) Namespaces(ctx context.Context) (*Result, error) {
	endpoint, err := c.repositoryURL("namespaces")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "list namespaces", httpclient.Request{
		Method:  http.MethodGet,
		URL:     endpoint,
		Headers: map[string]string{"Accept": string(ResultSPARQLXML)},
	})
	if err != nil {
		return nil, err
	}
	return NewResult(resp.Body())
}

// NamespaceList returns the prefix bindings as cayley namespaces ("rdf:" style prefixes).
func (c *Client) NamespaceList(ctx context.Context) ([]voc.Namespace, error) {
	res, err := c.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	return namespacesFromResult(res), nil
}

func namespacesFromResult(res *Result) []voc.Namespace {
	bindings := res.Bindings()
	out := make([]voc.Namespace, 0, len(bindings))
	for _, b := range bindings {
		prefix, ok := b["prefix"]
		if !ok {
			continue
		}
		ns, ok := b["namespace"]
		if !ok || ns.Value == "" {
			continue
		}
		p := prefix.Value
		if !strings.HasSuffix(p, ":") {
			p += ":"
		}
		out = append(out, voc.Namespace{Prefix: p, Full: ns.Value})
	}
	return out
}

func (c *Client) namespaceURL(prefix string) (string, error) {
	endpoint, err := c.repositoryURL("namespaces")
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return "", newError(KindPrefixNotSpecified, "prefix not specified, please supply a prefix")
	}
	return endpoint + "/" + url.PathEscape(prefix), nil
}
