package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cayleygraph/quad/voc"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

// resultView is the json/yaml shape of a query result.
type resultView struct {
	Headers  []string         `json:"headers" yaml:"headers"`
	Bindings []sesame.Binding `json:"bindings" yaml:"bindings"`
	Boolean  *bool            `json:"boolean,omitempty" yaml:"boolean,omitempty"`
}

func (c *cli) printResult(res *sesame.Result) error {
	view := resultView{Headers: res.Headers(), Bindings: res.Bindings()}
	if b, ok := res.Boolean(); ok {
		view.Boolean = &b
	}

	switch c.output {
	case "json", "yaml":
		return c.encode(view)
	}

	if view.Boolean != nil {
		return c.printValue("answer", *view.Boolean)
	}

	rows := make([][]string, 0, len(view.Bindings))
	for _, b := range view.Bindings {
		row := make([]string, len(view.Headers))
		for i, name := range view.Headers {
			if term, ok := b[name]; ok {
				row[i] = term.Quad().String()
			}
		}
		rows = append(rows, row)
	}
	if err := c.table(view.Headers, rows); err != nil {
		return err
	}
	if !res.HasRows() {
		fmt.Fprintln(c.stderr, "(no results)")
	}
	return nil
}

func (c *cli) printNamespaces(list []voc.Namespace) error {
	if c.output != "table" {
		out := make([]map[string]string, 0, len(list))
		for _, ns := range list {
			out = append(out, map[string]string{"prefix": ns.Prefix, "namespace": ns.Full})
		}
		return c.encode(out)
	}

	rows := make([][]string, 0, len(list))
	for _, ns := range list {
		rows = append(rows, []string{ns.Prefix, ns.Full})
	}
	return c.table([]string{"prefix", "namespace"}, rows)
}

// printValue prints a single named value: bare in table mode, as {key: value} otherwise.
func (c *cli) printValue(key string, value any) error {
	if c.output == "table" {
		_, err := fmt.Fprintln(c.stdout, value)
		return err
	}
	return c.encode(map[string]any{key: value})
}

func (c *cli) encode(v any) error {
	if c.output == "yaml" {
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("YAML encoding failed: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}

var cellEscaper = strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`, "\v", `\v`, "\f", `\f`)

// tableRow joins cells for the tabwriter; control characters in a cell are escaped
// so a single value cannot split a column or a line.
func tableRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = cellEscaper.Replace(cell)
	}
	return strings.Join(escaped, "\t")
}

// table renders aligned columns and colors the header line.
func (c *cli) table(headers []string, rows [][]string) error {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, tableRow(headers))
	for _, row := range rows {
		fmt.Fprintln(w, tableRow(row))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	sc := bufio.NewScanner(&buf)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " ")
		if first {
			c.header.Fprintln(c.stdout, line)
			first = false
			continue
		}
		fmt.Fprintln(c.stdout, line)
	}
	return sc.Err()
}
