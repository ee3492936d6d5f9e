package strategy

import "strings"

type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindEnum   Kind = "enum"
	KindTime   Kind = "time"
	KindBool   Kind = "bool"
)

// FieldSpec describes one input of a strategy form.
type FieldSpec struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Kind     Kind     `json:"kind"`
	Required bool     `json:"required"`
	Positive bool     `json:"positive,omitempty"`
	Integer  bool     `json:"integer,omitempty"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
}

// accepts reports whether v would satisfy the field as a required input.
func (fs FieldSpec) accepts(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if fs.Kind != KindNumber {
		return true
	}
	d, ok := parseDecimal(v)
	if !ok {
		return false
	}
	if fs.Positive && !d.IsPositive() {
		return false
	}
	return true
}

// whole reports whether a numeric value that must be a count is one. It is
// checked apart from accepts, which only decides required-field presence.
func (fs FieldSpec) whole(v string) bool {
	if !fs.Integer {
		return true
	}
	d, ok := parseDecimal(strings.TrimSpace(v))
	return !ok || d.IsInteger()
}

func (fs FieldSpec) option(v string) (string, bool) {
	for _, o := range fs.Options {
		if strings.EqualFold(o, strings.TrimSpace(v)) {
			return o, true
		}
	}
	return "", false
}

const (
	SegmentSpot    = "Delivery/Spot/Cash"
	SegmentFutures = "Futures"
	SegmentOptions = "Options"
)

var Segments = []string{SegmentSpot, SegmentFutures, SegmentOptions}

// IsFutures reports whether segment names a futures market. Leverage is
// only meaningful (and only required) there.
func IsFutures(segment string) bool {
	s := strings.TrimSpace(segment)
	if s == "Crypto Futures" || s == "Futures" {
		return true
	}
	return strings.Contains(strings.ToLower(s), "future")
}

var leverageField = FieldSpec{Key: "leverage", Label: "Leverage", Kind: KindNumber, Required: true, Positive: true}

var segmentField = FieldSpec{Key: "segment", Label: "Segment", Kind: KindText, Default: SegmentSpot}

func text(key, label string) FieldSpec {
	return FieldSpec{Key: key, Label: label, Kind: KindText, Required: true}
}

func positive(key, label string) FieldSpec {
	return FieldSpec{Key: key, Label: label, Kind: KindNumber, Required: true, Positive: true}
}

func optionalNumber(key, label string) FieldSpec {
	return FieldSpec{Key: key, Label: label, Kind: KindNumber, Positive: true}
}

func enum(key, label, def string, options ...string) FieldSpec {
	return FieldSpec{Key: key, Label: label, Kind: KindEnum, Options: options, Default: def}
}
