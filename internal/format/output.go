// Package format renders command results.
package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Tabular is implemented by results that have a table form. The table and
// csv formats require it.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Formats lists the names Write accepts.
func Formats() []string { return []string{"json", "edn", "yaml", "table", "csv"} }

// Write writes v in the requested format. json is the default.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "yaml":
		return WriteYAML(w, v)
	case "table", "csv":
		t, ok := v.(Tabular)
		if !ok {
			return fmt.Errorf("%s output is not available for this command", format)
		}
		if format == "csv" {
			return WriteCSV(w, t)
		}
		return WriteTable(w, t, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes one JSON document followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// plain turns v into maps, slices and scalars the way encoding/json sees it,
// so every format uses the json field names.
func plain(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, err
	}
	return x, nil
}
