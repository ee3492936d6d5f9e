package strategy

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ValidationError lists the display labels of missing or invalid required
// fields, in form order, plus any cross-field problems.
type ValidationError struct {
	Fields   []string `json:"fields,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Fields) > 0 {
		parts = append(parts, "Please fill all required fields: "+strings.Join(e.Fields, ", "))
	}
	parts = append(parts, e.Problems...)
	if len(parts) == 0 {
		return "invalid strategy configuration"
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) orNil() error {
	if e == nil || (len(e.Fields) == 0 && len(e.Problems) == 0) {
		return nil
	}
	return e
}

// RequiredFields returns the required set of t for this form. Leverage is
// appended when the selected segment is a futures segment.
func RequiredFields(f Form, t Type) []FieldSpec {
	v := Lookup(t)
	out := make([]FieldSpec, 0, len(v.Fields)+1)
	for _, fs := range v.Fields {
		if fs.Required {
			out = append(out, fs)
		}
	}
	if IsFutures(f.Get("segment")) {
		out = append(out, leverageField)
	}
	return out
}

// Validate returns the labels of required fields that are empty, or numeric
// fields that do not parse to a finite number or are not positive. An empty
// result means the form is submittable.
func Validate(f Form, t Type) []string {
	var missing []string
	for _, fs := range RequiredFields(f, t) {
		if !fs.accepts(f.Get(fs.Key)) {
			missing = append(missing, fs.Label)
		}
	}
	return missing
}

var (
	timeOfDay  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	forexAsset = regexp.MustCompile(`^[A-Z]{6}$`)
)

// Check runs Validate and then the rules that span fields or apply to
// optional inputs: option membership, optional numeric values, time
// formats, grid bounds and the Indy UTC asset and trading window.
func Check(f Form, t Type) error {
	verr := &ValidationError{Fields: Validate(f, t)}
	v := Lookup(t)
	required := map[string]bool{}
	for _, fs := range RequiredFields(f, t) {
		required[fs.Key] = true
	}

	for _, fs := range v.Fields {
		val := f.Get(fs.Key)
		if val == "" {
			continue
		}
		switch fs.Kind {
		case KindEnum:
			if _, ok := fs.option(val); !ok {
				verr.Problems = append(verr.Problems, fs.Label+" must be one of "+strings.Join(fs.Options, ", "))
			}
		case KindNumber:
			if !required[fs.Key] && !fs.accepts(val) {
				verr.Fields = append(verr.Fields, fs.Label)
			} else if !fs.whole(val) {
				verr.Problems = append(verr.Problems, fs.Label+" must be a whole number")
			}
		case KindTime:
			if !timeOfDay.MatchString(val) {
				verr.Problems = append(verr.Problems, fs.Label+" must be HH:MM")
			}
		}
	}
	if seg := f.Get("segment"); seg != "" && !IsFutures(seg) && !isSegment(seg) {
		verr.Problems = append(verr.Problems, "Segment must be one of "+strings.Join(Segments, ", "))
	}

	switch t.Resolve() {
	case HumanGrid, SmartGrid:
		lower, okL := f.Decimal("lower_limit")
		upper, okU := f.Decimal("upper_limit")
		if okL && okU && !lower.LessThan(upper) {
			verr.Problems = append(verr.Problems, "Upper limit must be greater than lower limit")
		}
		if t.Resolve() == SmartGrid {
			if lv, ok := f.Decimal("levels"); ok && lv.IntPart() < 2 {
				verr.Problems = append(verr.Problems, "Levels must be at least 2")
			}
			minP, okMin := f.Decimal("profit_per_level_min")
			maxP, okMax := f.Decimal("profit_per_level_max")
			if okMin && okMax && minP.GreaterThan(maxP) {
				verr.Problems = append(verr.Problems, "Profit per level min must not exceed max")
			}
		}
	case IndyUTC:
		if a := f.Get("asset"); a != "" && !forexAsset.MatchString(strings.ToUpper(a)) {
			verr.Problems = append(verr.Problems, "Asset must be a 6-letter symbol such as EURUSD")
		}
		start, okS := clock(f.Get("trading_window_start"))
		end, okE := clock(f.Get("trading_window_end"))
		if okS && okE && !start.Before(end) {
			verr.Problems = append(verr.Problems, "Trading window end must be after start")
		}
	case GrowthDCA:
		if d := f.Get("duration"); d != "" {
			if _, err := ParseSchedule(d); err != nil {
				verr.Problems = append(verr.Problems, "Duration: "+err.Error())
			}
		}
	}
	return verr.orNil()
}

func isSegment(s string) bool {
	return lo.ContainsBy(Segments, func(seg string) bool {
		return strings.EqualFold(seg, s)
	})
}

func clock(s string) (time.Time, bool) {
	if !timeOfDay.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", s)
	return t, err == nil
}
