package treefile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/nested/pkg/nested"
)

// Action is what a step does.
type Action string

const (
	ActionOpen       Action = "open"
	ActionClose      Action = "close"
	ActionSelect     Action = "select"
	ActionDeselect   Action = "deselect"
	ActionUnregister Action = "unregister"
)

// Step is one scripted operation. Exactly one action field is set. Value
// inverts open and select when false.
type Step struct {
	Open       string `yaml:"open,omitempty" json:"open,omitempty"`
	Close      string `yaml:"close,omitempty" json:"close,omitempty"`
	Select     string `yaml:"select,omitempty" json:"select,omitempty"`
	Deselect   string `yaml:"deselect,omitempty" json:"deselect,omitempty"`
	Unregister string `yaml:"unregister,omitempty" json:"unregister,omitempty"`
	Value      *bool  `yaml:"value,omitempty" json:"value,omitempty"`

	line, column int
}

// UnmarshalYAML records the step's position for error reporting.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type plain Step
	if err := value.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line, s.column = value.Line, value.Column
	return nil
}

// Action returns the step's action and target id.
func (s Step) Action() (Action, string, error) {
	var set []Action
	var id string
	for _, f := range []struct {
		action Action
		id     string
	}{
		{ActionOpen, s.Open},
		{ActionClose, s.Close},
		{ActionSelect, s.Select},
		{ActionDeselect, s.Deselect},
		{ActionUnregister, s.Unregister},
	} {
		if f.id != "" {
			set = append(set, f.action)
			id = f.id
		}
	}
	switch {
	case len(set) == 0:
		return "", "", fmt.Errorf("no action")
	case len(set) > 1:
		names := make([]string, len(set))
		for i, a := range set {
			names[i] = string(a)
		}
		return "", "", fmt.Errorf("several actions: %s", strings.Join(names, ", "))
	}
	if s.Value != nil && set[0] != ActionOpen && set[0] != ActionSelect {
		return "", "", fmt.Errorf("value only applies to open and select")
	}
	return set[0], id, nil
}

// value is the boolean passed to Open or Select.
func (s Step) value(a Action) bool {
	switch a {
	case ActionClose, ActionDeselect:
		return false
	}
	return s.Value == nil || *s.Value
}

// TraceEntry is the registry state after one step.
type TraceEntry struct {
	Step     int                     `json:"step"`
	Action   Action                  `json:"action"`
	ID       string                  `json:"id"`
	Value    bool                    `json:"value"`
	Opened   []string                `json:"opened"`
	Values   []string                `json:"values"`
	Selected map[string]nested.State `json:"selected"`
}

// Trace records every step of a script run.
type Trace []TraceEntry

// Last returns the final entry, or false for an empty trace.
func (t Trace) Last() (TraceEntry, bool) {
	if len(t) == 0 {
		return TraceEntry{}, false
	}
	return t[len(t)-1], true
}

// Run applies the definition's steps to reg in order.
func (d *Definition) Run(reg *nested.Registry) (Trace, error) {
	return RunSteps(reg, d.Steps)
}

// RunSteps applies steps to reg in order and records the state after each.
func RunSteps(reg *nested.Registry, steps []Step) (Trace, error) {
	trace := make(Trace, 0, len(steps))
	for i, s := range steps {
		action, id, err := s.Action()
		if err != nil {
			return trace, fmt.Errorf("step %d: %w", i+1, err)
		}
		v := s.value(action)
		switch action {
		case ActionOpen, ActionClose:
			reg.Open(id, v, nil)
		case ActionSelect, ActionDeselect:
			reg.Select(id, v, nil)
		case ActionUnregister:
			reg.Unregister(id)
		}
		snap := reg.Snapshot()
		trace = append(trace, TraceEntry{
			Step:     i + 1,
			Action:   action,
			ID:       id,
			Value:    v,
			Opened:   snap.Opened,
			Values:   snap.Values,
			Selected: snap.Selected,
		})
	}
	return trace, nil
}
