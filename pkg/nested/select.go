package nested

import (
	"fmt"
	"strings"
)

// Built-in select strategy names.
const (
	SelectClassic     = "classic"
	SelectIndependent = "independent"
	SelectLeaf        = "leaf"
	SelectSingleLeaf  = "single-leaf"
)

// SelectRequest is the input of a select strategy.
type SelectRequest struct {
	// ID is the node being selected or deselected.
	ID string

	// Value is true to select, false to deselect.
	Value bool

	// Selected is a private copy of the current selection. Strategies may
	// modify and return it.
	Selected *Selection

	// Tree is the forest at the time of the request.
	Tree Tree

	// Event is the originating event, passed through untouched.
	Event any
}

// SelectFunc computes the next selection. Returning nil leaves the current
// selection in place.
type SelectFunc func(req SelectRequest) *Selection

// InFunc converts an external list of selected ids into a selection.
type InFunc func(ids []string, tree Tree) *Selection

// OutFunc converts a selection into the external list of selected ids.
type OutFunc func(sel *Selection, tree Tree) []string

// SelectStrategy is a named select policy together with the conversions
// between the external id list and the internal tri-state map.
type SelectStrategy struct {
	Name   string
	Select SelectFunc
	In     InFunc
	Out    OutFunc
}

// ClassicSelect cascades to descendants and rolls ancestors up.
var ClassicSelect = SelectStrategy{
	Name:   SelectClassic,
	Select: classicSelect,
	In:     replayIn(classicSelect),
	Out:    leafOut,
}

// IndependentSelect sets only the requested node. Ancestors show
// Indeterminate for display but are never turned On.
var IndependentSelect = SelectStrategy{
	Name:   SelectIndependent,
	Select: independentSelect,
	In:     replayIn(independentSelect),
	Out:    independentOut,
}

// LeafSelect lets only leaves be selected; groups are derived.
var LeafSelect = SelectStrategy{
	Name:   SelectLeaf,
	Select: leafSelect(false),
	In:     replayIn(leafSelect(false)),
	Out:    leafOut,
}

// SingleLeafSelect is LeafSelect with at most one selected leaf.
var SingleLeafSelect = SelectStrategy{
	Name:   SelectSingleLeaf,
	Select: leafSelect(true),
	In:     replayIn(leafSelect(true)),
	Out:    leafOut,
}

func stateOf(v bool) State {
	if v {
		return On
	}
	return Off
}

func classicSelect(req SelectRequest) *Selection {
	sel := req.Selected
	st := stateOf(req.Value)
	sel.Set(req.ID, st)
	for _, d := range req.Tree.Descendants(req.ID) {
		sel.Set(d, st)
	}
	req.Tree.rollupAncestors(req.ID, sel)
	return sel
}

func independentSelect(req SelectRequest) *Selection {
	sel := req.Selected
	sel.Set(req.ID, stateOf(req.Value))
	if !req.Value {
		req.Tree.mark(req.ID, sel)
	}
	req.Tree.markAncestors(req.ID, sel)
	return sel
}

func leafSelect(single bool) SelectFunc {
	return func(req SelectRequest) *Selection {
		if req.Tree.IsGroup(req.ID) {
			return nil
		}
		sel := req.Selected
		if single && req.Value {
			sel = NewSelection()
		}
		sel.Set(req.ID, stateOf(req.Value))
		req.Tree.rollupAncestors(req.ID, sel)
		return sel
	}
}

// replayIn builds a selection by selecting every id in turn.
func replayIn(fn SelectFunc) InFunc {
	return func(ids []string, tree Tree) *Selection {
		sel := NewSelection()
		for _, id := range ids {
			next := fn(SelectRequest{ID: id, Value: true, Selected: sel.Clone(), Tree: tree})
			if next != nil {
				sel = next
			}
		}
		return sel
	}
}

func independentOut(sel *Selection, _ Tree) []string {
	return sel.On()
}

// leafOut lists On leaves only; group state is implied by their leaves.
func leafOut(sel *Selection, tree Tree) []string {
	var ids []string
	sel.Each(func(id string, st State) bool {
		if st == On && !tree.IsGroup(id) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// SelectStrategyNames lists the built-in select strategies.
func SelectStrategyNames() []string {
	return []string{SelectClassic, SelectIndependent, SelectLeaf, SelectSingleLeaf}
}

// ParseSelectStrategy resolves a built-in select strategy by name.
// The empty name selects classic.
func ParseSelectStrategy(name string) (SelectStrategy, error) {
	switch name {
	case "", SelectClassic:
		return ClassicSelect, nil
	case SelectIndependent:
		return IndependentSelect, nil
	case SelectLeaf:
		return LeafSelect, nil
	case SelectSingleLeaf:
		return SingleLeafSelect, nil
	default:
		return SelectStrategy{}, fmt.Errorf("nested: unknown select strategy %q (valid: %s)",
			name, strings.Join(SelectStrategyNames(), ", "))
	}
}

// CustomSelectStrategy wraps caller-supplied functions. A nil in replays
// fn for every id; a nil out lists every On id.
func CustomSelectStrategy(name string, fn SelectFunc, in InFunc, out OutFunc) SelectStrategy {
	if name == "" {
		name = "custom"
	}
	if in == nil {
		in = replayIn(fn)
	}
	if out == nil {
		out = independentOut
	}
	return SelectStrategy{Name: name, Select: fn, In: in, Out: out}
}
