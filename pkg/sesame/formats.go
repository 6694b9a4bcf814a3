package sesame

import (
	"path/filepath"
	"strings"
)

// QueryLanguage is the value of the queryLn form field.
type QueryLanguage string

const (
	LanguageSPARQL QueryLanguage = "sparql"
	LanguageSeRQL  QueryLanguage = "serql"
)

// ResultFormat is the MIME type requested for query results.
type ResultFormat string

const (
	ResultSPARQLXML ResultFormat = "application/sparql-results+xml"

	// Recognised by the server but not decodable by Result.
	ResultSPARQLJSON  ResultFormat = "application/sparql-results+json"
	ResultBinaryTable ResultFormat = "application/x-binary-rdf-results-table"
	ResultBoolean     ResultFormat = "text/boolean"
)

// InputFormat is the MIME type of RDF data sent to the statements endpoint.
type InputFormat string

const (
	InputRDFXML   InputFormat = "application/rdf+xml"
	InputNTriples InputFormat = "text/plain"
	InputTurtle   InputFormat = "application/x-turtle"
	InputN3       InputFormat = "text/rdf+n3"
	InputTriX     InputFormat = "application/trix"
	InputTriG     InputFormat = "application/x-trig"
)

const mimeTextPlain = "text/plain"

var inputFormats = []InputFormat{
	InputRDFXML,
	InputNTriples,
	InputTurtle,
	InputN3,
	InputTriX,
	InputTriG,
}

// InputFormats returns the supported upload formats.
func InputFormats() []InputFormat {
	out := make([]InputFormat, len(inputFormats))
	copy(out, inputFormats)
	return out
}

// Supported reports whether the language is accepted by Query.
func (l QueryLanguage) Supported() bool {
	return l == LanguageSPARQL || l == LanguageSeRQL
}

// Supported reports whether Result can decode the format.
func (f ResultFormat) Supported() bool {
	return f == ResultSPARQLXML
}

// Supported reports whether the format is accepted by Append and Overwrite.
func (f InputFormat) Supported() bool {
	for _, v := range inputFormats {
		if f == v {
			return true
		}
	}
	return false
}

func checkQueryLanguage(l QueryLanguage) error {
	if !l.Supported() {
		return newError(KindUnsupportedQueryLanguage, "unsupported query language "+quote(string(l))+", sparql and serql supported")
	}
	return nil
}

func checkResultFormat(f ResultFormat) error {
	if !f.Supported() {
		return newError(KindUnsupportedResultFormat, "unsupported result format "+quote(string(f))+", "+string(ResultSPARQLXML)+" supported")
	}
	return nil
}

func checkInputFormat(f InputFormat) error {
	if !f.Supported() {
		return newError(KindUnsupportedInputFormat, "unsupported input format "+quote(string(f)))
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}

// ParseInputFormat resolves a short name, file extension or MIME type to an InputFormat.
func ParseInputFormat(value string) (InputFormat, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, ".")
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}

	switch v {
	case "rdfxml", "rdf/xml", "rdf", "owl", "xml":
		return InputRDFXML, true
	case "ntriples", "n-triples", "nt":
		return InputNTriples, true
	case "turtle", "ttl", "text/turtle":
		return InputTurtle, true
	case "n3", "notation3", "text/n3":
		return InputN3, true
	case "trix":
		return InputTriX, true
	case "trig", "application/trig":
		return InputTriG, true
	}

	if f := InputFormat(v); f.Supported() {
		return f, true
	}
	return "", false
}

// InputFormatForPath picks the upload format from a file extension.
func InputFormatForPath(path string) (InputFormat, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	return ParseInputFormat(ext)
}
