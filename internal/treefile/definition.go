package treefile

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/pkg/nested"
)

// Definition is a declarative forest together with its strategies, initial
// state and an optional script of steps.
type Definition struct {
	Open     string   `yaml:"open,omitempty" json:"open,omitempty"`
	Select   string   `yaml:"select,omitempty" json:"select,omitempty"`
	Opened   []string `yaml:"opened,omitempty" json:"opened,omitempty"`
	Selected []string `yaml:"selected,omitempty" json:"selected,omitempty"`
	Nodes    []Node   `yaml:"nodes" json:"nodes"`
	Steps    []Step   `yaml:"steps,omitempty" json:"steps,omitempty"`

	path string
}

// Node is one entry of the forest. A node with children, or with group set,
// is registered as a group.
type Node struct {
	ID       string `yaml:"id" json:"id"`
	Group    bool   `yaml:"group,omitempty" json:"group,omitempty"`
	Children []Node `yaml:"children,omitempty" json:"children,omitempty"`

	line, column int
}

// IsGroup reports whether the node is registered as a group.
func (n Node) IsGroup() bool {
	return n.Group || len(n.Children) > 0
}

// UnmarshalYAML records the node's position for error reporting.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type plain Node
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	n.line, n.column = value.Line, value.Column
	return nil
}

// Path returns the file the definition was loaded from, if any.
func (d *Definition) Path() string {
	return d.path
}

// Load reads and parses a tree definition file. YAML and JSON are both
// accepted.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("N200").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}
	return parse(data, path)
}

// Parse parses a tree definition from memory.
func Parse(data []byte) (*Definition, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Definition, error) {
	def := &Definition{path: path}
	if len(bytes.TrimSpace(data)) == 0 {
		return def, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		ne := errors.New("N201").Wrap(err)
		if path != "" {
			ne.WithDetail("Cannot parse " + path)
		}
		return nil, ne
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Validate checks strategy names, id uniqueness, and that every list and
// step refers to a defined node.
func (d *Definition) Validate() error {
	if _, err := nested.ParseOpenStrategy(d.Open); err != nil {
		return errors.New("N103").
			WithDetail(err.Error()).
			WithSuggestion(errors.SuggestName(d.Open, nested.OpenStrategyNames()))
	}
	if _, err := nested.ParseSelectStrategy(d.Select); err != nil {
		return errors.New("N103").
			WithDetail(err.Error()).
			WithSuggestion(errors.SuggestName(d.Select, nested.SelectStrategyNames()))
	}

	seen := make(map[string]Node)
	var check func(nodes []Node) error
	check = func(nodes []Node) error {
		for _, n := range nodes {
			if n.ID == "" {
				return d.at(errors.New("N201").WithDetail("node without an id"), n.line, n.column)
			}
			if first, dup := seen[n.ID]; dup {
				return d.at(errors.New("N202").
					WithDetailf("node %q is already defined at line %d", n.ID, first.line),
					n.line, n.column)
			}
			seen[n.ID] = n
			if err := check(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(d.Nodes); err != nil {
		return err
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	known := func(field, id string, line, col int) error {
		if _, ok := seen[id]; ok {
			return nil
		}
		return d.at(errors.New("N203").
			WithDetailf("%s refers to %q", field, id).
			WithSuggestion(errors.SuggestName(id, ids)), line, col)
	}

	for _, id := range d.Opened {
		if err := known("opened", id, 0, 0); err != nil {
			return err
		}
	}
	for _, id := range d.Selected {
		if err := known("selected", id, 0, 0); err != nil {
			return err
		}
	}
	for i, s := range d.Steps {
		action, id, err := s.Action()
		if err != nil {
			return d.at(errors.New("N204").
				WithDetailf("step %d: %v", i+1, err), s.line, s.column)
		}
		if err := known("step "+strconv.Itoa(i+1)+" ("+string(action)+")", id, s.line, s.column); err != nil {
			return err
		}
	}
	return nil
}

// at attaches a file position to err when one is known.
func (d *Definition) at(err *errors.NestedError, line, column int) *errors.NestedError {
	if line == 0 {
		return err
	}
	if d.path != "" {
		return err.WithLocation(d.path, line, column)
	}
	err.Location = &errors.Location{File: "<input>", Line: line, Column: column}
	return err
}

// Walk calls fn for every node depth first, in definition order.
func (d *Definition) Walk(fn func(n Node, parent string, depth int)) {
	var walk func(nodes []Node, parent string, depth int)
	walk = func(nodes []Node, parent string, depth int) {
		for _, n := range nodes {
			fn(n, parent, depth)
			walk(n.Children, n.ID, depth+1)
		}
	}
	walk(d.Nodes, "", 0)
}

// IDs returns every node id in definition order.
func (d *Definition) IDs() []string {
	var ids []string
	d.Walk(func(n Node, _ string, _ int) {
		ids = append(ids, n.ID)
	})
	return ids
}

// Has reports whether the definition declares id.
func (d *Definition) Has(id string) bool {
	found := false
	d.Walk(func(n Node, _ string, _ int) {
		if n.ID == id {
			found = true
		}
	})
	return found
}

// String summarizes the definition for logs.
func (d *Definition) String() string {
	return fmt.Sprintf("tree(%d nodes, %d steps, open=%s, select=%s)",
		len(d.IDs()), len(d.Steps), d.Open, d.Select)
}
