package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatTOML}

// ParseFormat validates a --format value. Empty means table.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown format %q (want %s)", s, strings.Join(names, ", "))
}

// Table is the human-readable rendering of a result.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render prints v in format f. YAML and TOML keys follow the JSON field
// names. TOML documents need a top-level table, so v is placed under key
// there. The table format prints t.
func Render(w io.Writer, f Format, key string, v any, t *Table) error {
	if f == FormatYAML || f == FormatTOML {
		generic, err := jsonShaped(v)
		if err != nil {
			return err
		}
		v = generic
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(map[string]any{key: v})
	case FormatTable, "":
		if t == nil {
			_, err := fmt.Fprintln(w, v)
			return err
		}
		return renderTable(w, t)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// jsonShaped converts v to maps and slices keyed by its JSON names.
func jsonShaped(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func renderTable(w io.Writer, t *Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, RenderMuted("(none)"))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		headers := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			headers[i] = strings.ToUpper(h)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
