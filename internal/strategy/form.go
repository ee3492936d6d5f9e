package strategy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Form holds raw user input keyed by field key. Values are kept as the
// strings a form control would produce; parsing happens at validation and
// payload time.
type Form map[string]string

// Get returns the trimmed value for key.
func (f Form) Get(key string) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f[key])
}

// Or returns the trimmed value for key, or def when it is empty.
func (f Form) Or(key, def string) string {
	if v := f.Get(key); v != "" {
		return v
	}
	return def
}

func (f Form) Has(key string) bool {
	return f.Get(key) != ""
}

// Decimal parses key as a finite decimal.
func (f Form) Decimal(key string) (decimal.Decimal, bool) {
	return parseDecimal(f.Get(key))
}

// UnmarshalJSON accepts any JSON object of scalars.
func (f *Form) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Form, len(raw))
	for k, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = s
	}
	*f = out
	return nil
}

// UnmarshalYAML accepts a mapping of scalars, as written in CLI form files.
func (f *Form) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("form must be a mapping, got line %d", node.Line)
	}
	out := make(Form, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch v.Kind {
		case yaml.ScalarNode:
			if v.Tag == "!!null" {
				out[k.Value] = ""
				continue
			}
			out[k.Value] = v.Value
		default:
			return fmt.Errorf("field %s: value must be a scalar (line %d)", k.Value, v.Line)
		}
	}
	*f = out
	return nil
}

func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("value must be a scalar")
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
