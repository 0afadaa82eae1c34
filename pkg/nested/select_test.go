package nested

import (
	"reflect"
	"slices"
	"testing"
)

func run(s SelectStrategy, tree Tree, sel *Selection, id string, value bool) *Selection {
	next := s.Select(SelectRequest{ID: id, Value: value, Selected: sel.Clone(), Tree: tree})
	if next == nil {
		return sel
	}
	return next
}

func TestClassicCascade(t *testing.T) {
	tree := forest(map[string][]string{"A": {"B", "C"}})
	sel := NewSelection()

	sel = run(ClassicSelect, tree, sel, "B", true)
	if st := sel.State("A"); st != Indeterminate {
		t.Errorf("after B on, A = %v, want indeterminate", st)
	}

	sel = run(ClassicSelect, tree, sel, "C", true)
	if st := sel.State("A"); st != On {
		t.Errorf("after C on, A = %v, want on", st)
	}

	sel = run(ClassicSelect, tree, sel, "C", false)
	if st := sel.State("A"); st != Indeterminate {
		t.Errorf("after C off, A = %v, want indeterminate", st)
	}

	sel = run(ClassicSelect, tree, sel, "B", false)
	if st := sel.State("A"); st != Off {
		t.Errorf("after B off, A = %v, want off", st)
	}
}

func TestClassicCascadesDown(t *testing.T) {
	tree := forest(map[string][]string{
		"root": {"g", "x"},
		"g":    {"a", "b"},
	})

	sel := run(ClassicSelect, tree, NewSelection(), "g", true)
	for _, id := range []string{"g", "a", "b"} {
		if st := sel.State(id); st != On {
			t.Errorf("%s = %v, want on", id, st)
		}
	}
	if st := sel.State("root"); st != Indeterminate {
		t.Errorf("root = %v, want indeterminate", st)
	}
	if got := ClassicSelect.Out(sel, tree); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Out() = %v, want [a b]", got)
	}

	sel = run(ClassicSelect, tree, sel, "root", false)
	for _, id := range []string{"root", "g", "a", "b", "x"} {
		if st := sel.State(id); st != Off {
			t.Errorf("%s = %v, want off", id, st)
		}
	}
}

func TestClassicIndeterminateChildPropagates(t *testing.T) {
	tree := forest(map[string][]string{
		"root": {"g"},
		"g":    {"a", "b"},
	})

	sel := run(ClassicSelect, tree, NewSelection(), "a", true)
	if st := sel.State("g"); st != Indeterminate {
		t.Errorf("g = %v, want indeterminate", st)
	}
	if st := sel.State("root"); st != Indeterminate {
		t.Errorf("root = %v, want indeterminate", st)
	}
}

func TestIndependentSelect(t *testing.T) {
	tree := forest(map[string][]string{"A": {"B", "C"}})

	sel := run(IndependentSelect, tree, NewSelection(), "A", true)
	if _, ok := sel.Get("B"); ok {
		t.Error("independent select cascaded to a child")
	}

	sel = run(IndependentSelect, tree, sel, "B", true)
	if st := sel.State("A"); st != On {
		t.Errorf("A = %v, want on (untouched)", st)
	}
	if got := IndependentSelect.Out(sel, tree); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("Out() = %v, want [A B]", got)
	}
}

func TestIndependentMarksAncestors(t *testing.T) {
	tree := forest(map[string][]string{
		"root": {"a"},
		"a":    {"b", "c"},
	})

	sel := run(IndependentSelect, tree, NewSelection(), "b", true)
	for _, id := range []string{"a", "root"} {
		if st := sel.State(id); st != Indeterminate {
			t.Errorf("%s = %v, want indeterminate", id, st)
		}
	}
	if got := IndependentSelect.Out(sel, tree); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Out() = %v, want [b]", got)
	}

	sel = run(IndependentSelect, tree, sel, "a", true)
	sel = run(IndependentSelect, tree, sel, "a", false)
	if st := sel.State("a"); st != Indeterminate {
		t.Errorf("deselected a = %v, want indeterminate while b is on", st)
	}

	sel = run(IndependentSelect, tree, sel, "b", false)
	for _, id := range []string{"a", "root"} {
		if st := sel.State(id); st != Off {
			t.Errorf("%s = %v, want off", id, st)
		}
	}
	if got := IndependentSelect.Out(sel, tree); len(got) != 0 {
		t.Errorf("Out() = %v, want empty", got)
	}
}

func TestRollupEmptyGroupIsOff(t *testing.T) {
	tree := forest(map[string][]string{"g": {}})
	if st := tree.rollup("g", NewSelection()); st != Off {
		t.Errorf("rollup(empty) = %v, want off", st)
	}
}

func TestAncestorsStopAtRemovedGroup(t *testing.T) {
	tree := Tree{
		children: map[string][]string{"root": {"mid"}},
		parents:  map[string]string{"leaf": "gone", "gone": "root"},
	}
	if got := tree.Ancestors("leaf"); len(got) != 0 {
		t.Errorf("Ancestors(leaf) = %v, want none past a group without children entry", got)
	}
}

func TestLeafSelectIgnoresGroups(t *testing.T) {
	tree := forest(map[string][]string{"G": {"X", "Y"}})

	got := LeafSelect.Select(SelectRequest{ID: "G", Value: true, Selected: NewSelection(), Tree: tree})
	if got != nil {
		t.Errorf("selecting a group returned %v, want nil", got.Map())
	}

	sel := run(LeafSelect, tree, NewSelection(), "X", true)
	if st := sel.State("G"); st != Indeterminate {
		t.Errorf("G = %v, want indeterminate", st)
	}
	sel = run(LeafSelect, tree, sel, "Y", true)
	if st := sel.State("G"); st != On {
		t.Errorf("G = %v, want on", st)
	}
	if out := LeafSelect.Out(sel, tree); !slices.Equal(out, []string{"X", "Y"}) {
		t.Errorf("Out() = %v, want [X Y]", out)
	}
}

func TestSingleLeafSelect(t *testing.T) {
	tree := forest(nil)

	sel := run(SingleLeafSelect, tree, NewSelection(), "X", true)
	sel = run(SingleLeafSelect, tree, sel, "Y", true)

	if got := sel.On(); !slices.Equal(got, []string{"Y"}) {
		t.Errorf("On() = %v, want [Y]", got)
	}
	if st := sel.State("X"); st != Off {
		t.Errorf("X = %v, want off", st)
	}
}

func TestSingleLeafDeselectKeepsOthers(t *testing.T) {
	tree := forest(map[string][]string{"G": {"X", "Y"}})

	sel := run(SingleLeafSelect, tree, NewSelection(), "Y", true)
	sel = run(SingleLeafSelect, tree, sel, "X", false)

	if st := sel.State("Y"); st != On {
		t.Errorf("Y = %v, want on", st)
	}
	if st := sel.State("G"); st != Indeterminate {
		t.Errorf("G = %v, want indeterminate", st)
	}
}

func TestSelectIdempotent(t *testing.T) {
	tree := forest(map[string][]string{
		"root": {"g", "x"},
		"g":    {"a", "b"},
	})

	for _, s := range []SelectStrategy{ClassicSelect, IndependentSelect, LeafSelect, SingleLeafSelect} {
		t.Run(s.Name, func(t *testing.T) {
			once := run(s, tree, NewSelection(), "a", true)
			twice := run(s, tree, once, "a", true)
			if !reflect.DeepEqual(once.Map(), twice.Map()) {
				t.Errorf("once = %v, twice = %v", once.Map(), twice.Map())
			}
			if !slices.Equal(once.IDs(), twice.IDs()) {
				t.Errorf("order changed: %v vs %v", once.IDs(), twice.IDs())
			}
		})
	}
}

func TestInOutRoundTrip(t *testing.T) {
	tree := forest(map[string][]string{
		"A": {"B", "C"},
		"C": {"D", "E"},
	})

	steps := []struct {
		id    string
		value bool
	}{
		{"C", true},
		{"B", true},
		{"D", false},
		{"E", true},
		{"A", true},
	}

	for _, s := range []SelectStrategy{ClassicSelect, IndependentSelect, LeafSelect, SingleLeafSelect} {
		t.Run(s.Name, func(t *testing.T) {
			sel := NewSelection()
			for _, step := range steps {
				sel = run(s, tree, sel, step.id, step.value)

				out := s.Out(sel, tree)
				again := s.Out(s.In(out, tree), tree)
				if !slices.Equal(out, again) {
					t.Errorf("after %s=%v: out = %v, out(in(out)) = %v", step.id, step.value, out, again)
				}
			}
		})
	}
}

func TestClassicIn(t *testing.T) {
	tree := forest(map[string][]string{"A": {"B", "C"}})

	sel := ClassicSelect.In([]string{"B", "C"}, tree)
	if st := sel.State("A"); st != On {
		t.Errorf("A = %v, want on", st)
	}

	sel = ClassicSelect.In(nil, tree)
	if sel.Len() != 0 {
		t.Errorf("In(nil).Len() = %d, want 0", sel.Len())
	}
}

func TestParseSelectStrategy(t *testing.T) {
	for _, name := range SelectStrategyNames() {
		s, err := ParseSelectStrategy(name)
		if err != nil {
			t.Errorf("ParseSelectStrategy(%q) error: %v", name, err)
			continue
		}
		if s.Name != name {
			t.Errorf("ParseSelectStrategy(%q).Name = %q", name, s.Name)
		}
		if s.Select == nil || s.In == nil || s.Out == nil {
			t.Errorf("ParseSelectStrategy(%q) has nil functions", name)
		}
	}

	if s, err := ParseSelectStrategy(""); err != nil || s.Name != SelectClassic {
		t.Errorf("ParseSelectStrategy(\"\") = %q, %v; want classic", s.Name, err)
	}
	if _, err := ParseSelectStrategy("radio"); err == nil {
		t.Error("ParseSelectStrategy(radio) should fail")
	}
}

func TestCustomSelectStrategyDefaults(t *testing.T) {
	onlyEven := func(req SelectRequest) *Selection {
		if len(req.ID)%2 != 0 {
			return nil
		}
		req.Selected.Set(req.ID, stateOf(req.Value))
		return req.Selected
	}
	s := CustomSelectStrategy("even", onlyEven, nil, nil)

	sel := s.In([]string{"ab", "abc", "abcd"}, forest(nil))
	if got := s.Out(sel, forest(nil)); !slices.Equal(got, []string{"ab", "abcd"}) {
		t.Errorf("Out(In()) = %v, want [ab abcd]", got)
	}
}
