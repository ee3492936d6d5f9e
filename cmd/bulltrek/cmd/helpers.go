package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/safin-krmavi/Bulltrek/internal/alert"
	"github.com/safin-krmavi/Bulltrek/internal/brokerage"
	"github.com/safin-krmavi/Bulltrek/internal/lifecycle"
	"github.com/safin-krmavi/Bulltrek/internal/notify"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
	"github.com/safin-krmavi/Bulltrek/internal/submission"
)

// setFlags collects repeated --set key=value flags.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("--set expects key=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

// listFlags collects a repeated flag's values in order.
type listFlags []string

func (l *listFlags) String() string { return strings.Join(*l, ",") }

func (l *listFlags) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// readCustom loads a custom strategy from a YAML or JSON file; flags that
// are set replace the file's values.
func readCustom(path, name, exit string, entries, frames listFlags) (submission.CustomStrategy, error) {
	var cs submission.CustomStrategy
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return cs, err
		}
		if err := yaml.Unmarshal(b, &cs); err != nil {
			return cs, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if name != "" {
		cs.Name = name
	}
	if exit != "" {
		cs.ExitCondition = exit
	}
	if len(entries) > 0 {
		cs.EntryConditions = entries
	}
	if len(frames) > 0 {
		cs.Timeframes = lo.FlatMap(frames, func(f string, _ int) []string { return strings.Split(f, ",") })
	}
	return cs, nil
}

// readForm loads a form from a YAML or JSON file and applies --set
// overrides on top.
func readForm(path string, sets setFlags) (strategy.Form, error) {
	form := strategy.Form{}
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &form); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		if form == nil {
			form = strategy.Form{}
		}
	}
	for _, kv := range sets {
		k, v, _ := strings.Cut(kv, "=")
		form[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return form, nil
}

func parseType(s string) (strategy.Type, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("--type required (one of %s)", typeList())
	}
	return strategy.Parse(s)
}

func typeList() string {
	out := make([]string, 0, len(strategy.Types))
	for _, t := range strategy.Types {
		out = append(out, t.Slug())
	}
	return strings.Join(out, ", ")
}

func rawView(raw []byte) any {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return string(raw)
}

func (c Context) submitter() *submission.Submitter {
	return &submission.Submitter{
		HTTP:               c.HTTP,
		Logger:             c.Logger,
		PreflightGrowthDCA: c.Config.PreflightGrowthDCA,
	}
}

func (c Context) brokerages() *brokerage.Service {
	return &brokerage.Service{HTTP: c.HTTP, Logger: c.Logger}
}

func (c Context) dispatcher(alerts *alert.Manager) *lifecycle.Dispatcher {
	return &lifecycle.Dispatcher{
		HTTP:     c.HTTP,
		Logger:   c.Logger,
		Alerts:   alerts,
		Notifier: notify.LogNotifier{Logger: c.Logger},
		Machines: lifecycle.NewMachines(false),
		TTL:      c.Config.Alerts,
	}
}
