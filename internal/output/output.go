package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatTable Format = "table"
)

func Parse(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (json|text|table)", s)
	}
}

// Write renders v. Text prints objects as key: value lines; table prints a
// list of objects as aligned columns. Anything else falls back to JSON.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatText, FormatTable:
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		switch x := generic.(type) {
		case map[string]any:
			return writeObject(w, x)
		case []any:
			if format == FormatTable {
				if rows, ok := objects(x); ok {
					return writeTable(w, rows)
				}
			}
			for _, it := range x {
				if _, err := fmt.Fprintln(w, scalar(it)); err != nil {
					return err
				}
			}
			return nil
		case string:
			_, err := fmt.Fprintln(w, x)
			return err
		}
		return writeJSON(w, v)
	default:
		return writeJSON(w, v)
	}
}

// Message prints a one-line status, used after actions that return no body.
func Message(w io.Writer, format Format, msg string) error {
	if format == FormatJSON || format == "" {
		return writeJSON(w, map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeObject(w io.Writer, m map[string]any) error {
	keys := lo.Keys(m)
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, scalar(m[k]))
	}
	return tw.Flush()
}

func writeTable(w io.Writer, rows []map[string]any) error {
	cols := lo.Uniq(lo.FlatMap(rows, func(r map[string]any, _ int) []string { return lo.Keys(r) }))
	sort.Strings(cols)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range rows {
		cells := lo.Map(cols, func(c string, _ int) string { return scalar(r[c]) })
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func objects(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func toGeneric(v any) (any, error) {
	var b []byte
	switch x := v.(type) {
	case json.RawMessage:
		b = x
	case []byte:
		if !json.Valid(x) {
			return string(x), nil
		}
		b = x
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
