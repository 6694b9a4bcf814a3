package sesame

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/cayleygraph/quad"
)

// TermType is the kind of RDF term bound to a variable.
type TermType string

const (
	TypeLiteral TermType = "literal"
	TypeURI     TermType = "uri"
	TypeBNode   TermType = "bnode"
)

// TypeSuffix is appended to a variable name to form the Row key holding its TermType.
const TypeSuffix = "_type"

// Term is a single bound value.
type Term struct {
	Type     TermType `json:"type" yaml:"type"`
	Value    string   `json:"value" yaml:"value"`
	Datatype string   `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Lang     string   `json:"lang,omitempty" yaml:"lang,omitempty"`
}

// Quad converts the term to a cayley quad value.
func (t Term) Quad() quad.Value {
	switch t.Type {
	case TypeURI:
		return quad.IRI(t.Value)
	case TypeBNode:
		return quad.BNode(t.Value)
	case TypeLiteral:
		if t.Lang != "" {
			return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}
		}
		if t.Datatype != "" {
			return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
		}
		return quad.String(t.Value)
	}
	return nil
}

// Binding maps variable names to terms for one result row.
type Binding map[string]Term

// Row is the flattened form of a Binding: name -> value and name_type -> TermType.
type Row map[string]string

// Result wraps one SPARQL Query Results XML document. It is immutable once built.
type Result struct {
	doc sparqlDocument
}

type sparqlDocument struct {
	XMLName xml.Name `xml:"sparql"`
	Head    struct {
		Variables []struct {
			Name string `xml:"name,attr"`
		} `xml:"variable"`
	} `xml:"head"`
	Boolean *string `xml:"boolean"`
	Results struct {
		Items []sparqlResult `xml:"result"`
	} `xml:"results"`
}

type sparqlResult struct {
	Bindings []sparqlBinding `xml:"binding"`
}

type sparqlBinding struct {
	Name    string         `xml:"name,attr"`
	Literal *sparqlLiteral `xml:"literal"`
	URI     *string        `xml:"uri"`
	BNode   *string        `xml:"bnode"`
}

type sparqlLiteral struct {
	Value    string `xml:",chardata"`
	Datatype string `xml:"datatype,attr"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
}

// NewResult parses body. Malformed XML yields a KindParse error and no Result.
func NewResult(body []byte) (*Result, error) {
	var doc sparqlDocument
	dec := xml.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&doc); err != nil {
		return nil, wrapError(KindParse, "parse sparql results", err)
	}
	if err := expectEnd(dec); err != nil {
		return nil, wrapError(KindParse, "parse sparql results", err)
	}
	return &Result{doc: doc}, nil
}

// expectEnd consumes the rest of the document. Only whitespace, comments and
// processing instructions may follow the root element.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("extra content at the end of the document")
			}
		default:
			return errors.New("extra content at the end of the document")
		}
	}
}

// Headers returns the declared variable names in document order.
func (r *Result) Headers() []string {
	headers := make([]string, 0, len(r.doc.Head.Variables))
	for _, v := range r.doc.Head.Variables {
		headers = append(headers, v.Name)
	}
	return headers
}

// HasRows reports whether the document contains at least one result.
func (r *Result) HasRows() bool {
	return len(r.doc.Results.Items) > 0
}

// Len returns the number of results.
func (r *Result) Len() int {
	return len(r.doc.Results.Items)
}

// Rows returns the flattened rows. ok is false when the document has no results.
func (r *Result) Rows() (rows []Row, ok bool) {
	if !r.HasRows() {
		return nil, false
	}

	rows = make([]Row, 0, len(r.doc.Results.Items))
	for _, item := range r.doc.Results.Items {
		row := make(Row, len(item.Bindings)*2)
		for _, b := range item.Bindings {
			term, ok := b.term()
			if !ok {
				continue
			}
			row[b.Name] = term.Value
			row[b.Name+TypeSuffix] = string(term.Type)
		}
		rows = append(rows, row)
	}
	return rows, true
}

// Bindings returns every result with typed terms, including datatype and language tags.
func (r *Result) Bindings() []Binding {
	out := make([]Binding, 0, len(r.doc.Results.Items))
	for _, item := range r.doc.Results.Items {
		binding := make(Binding, len(item.Bindings))
		for _, b := range item.Bindings {
			if term, ok := b.term(); ok {
				binding[b.Name] = term
			}
		}
		out = append(out, binding)
	}
	return out
}

// Boolean returns the answer of an ASK query. ok is false for non-boolean documents.
func (r *Result) Boolean() (value, ok bool) {
	if r.doc.Boolean == nil {
		return false, false
	}
	return strings.TrimSpace(*r.doc.Boolean) == "true", true
}

// term picks the bound value; literal wins over uri, uri over bnode.
func (b sparqlBinding) term() (Term, bool) {
	switch {
	case b.Literal != nil:
		return Term{
			Type:     TypeLiteral,
			Value:    b.Literal.Value,
			Datatype: b.Literal.Datatype,
			Lang:     b.Literal.Lang,
		}, true
	case b.URI != nil:
		return Term{Type: TypeURI, Value: strings.TrimSpace(*b.URI)}, true
	case b.BNode != nil:
		return Term{Type: TypeBNode, Value: strings.TrimSpace(*b.BNode)}, true
	}
	return Term{}, false
}
