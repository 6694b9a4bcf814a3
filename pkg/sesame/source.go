package sesame

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadSource loads RDF data from a local path or an http(s) URL. HTML pages are followed
// once through a <link rel="alternate"> pointing at a supported RDF serialisation.
func (c *Client) ReadSource(ctx context.Context, path string, format InputFormat) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newError(KindFileNotSpecified, "file not specified, please supply a file path")
	}
	if isRemote(path) {
		return c.fetchSource(ctx, path, format, true)
	}
	return readLocalFile(path)
}

func isRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func readLocalFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wrapError(KindFileNotFound, "file not found: "+path, err)
	}
	if err != nil {
		return nil, wrapError(KindFileNotReadable, "file not readable: "+path, err)
	}
	if info.IsDir() {
		return nil, newError(KindFileNotReadable, "file not readable: "+path+" is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(KindFileNotReadable, "file not readable: "+path, err)
	}
	return data, nil
}

func (c *Client) fetchSource(ctx context.Context, source string, format InputFormat, followHTML bool) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	accept := "*/*"
	if format.Supported() {
		accept = string(format) + ", */*;q=0.5"
	}

	resp, err := c.http.Get(ctx, source, map[string]string{"Accept": accept})
	if err != nil {
		return nil, wrapError(KindFileNotReadable, "file not readable: "+source, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound || code == http.StatusGone:
		return nil, &Error{Kind: KindFileNotFound, Message: "file not found: " + source, StatusCode: code}
	case code < 200 || code > 299:
		return nil, &Error{Kind: KindFileNotReadable, Message: "file not readable: " + source, StatusCode: code}
	}

	body := resp.Body()
	if !followHTML || !isHTML(resp.Header("Content-Type")) {
		return body, nil
	}

	link, err := discoverRDFLink(body, source, format)
	if err != nil {
		return nil, wrapError(KindFileNotReadable, "file not readable: "+source, err)
	}
	if link == "" {
		return nil, newError(KindFileNotReadable, "file not readable: "+source+" is an HTML page without an RDF alternate link")
	}

	c.log.DebugObj("following rdf alternate link", "sesame_source", map[string]any{
		"page": source,
		"link": link,
	})
	return c.fetchSource(ctx, link, format, false)
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// discoverRDFLink returns the absolute href of the best <link rel="alternate"> on the page:
// one whose type matches want, else the first with any supported type.
func discoverRDFLink(page []byte, base string, want InputFormat) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var exact, fallback string
	doc.Find(`link[rel~="alternate"][href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		href, _ := s.Attr("href")
		format, ok := ParseInputFormat(typ)
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		if format == want {
			exact = strings.TrimSpace(href)
			return false
		}
		if fallback == "" {
			fallback = strings.TrimSpace(href)
		}
		return true
	})

	href := exact
	if href == "" {
		href = fallback
	}
	if href == "" {
		return "", nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}
