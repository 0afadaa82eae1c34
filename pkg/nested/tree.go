package nested

// Tree is a read-only view of the forest handed to strategies.
// It is only valid for the duration of the strategy call.
type Tree struct {
	children map[string][]string
	parents  map[string]string
}

// Children returns the child ids of id in registration order.
func (t Tree) Children(id string) []string {
	kids := t.children[id]
	if len(kids) == 0 {
		return nil
	}
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// IsGroup reports whether id has a children entry.
func (t Tree) IsGroup(id string) bool {
	_, ok := t.children[id]
	return ok
}

// Parent returns the parent id of id. Roots report false.
func (t Tree) Parent(id string) (string, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// Ancestors returns the parent chain of id, nearest first.
// The walk stops if an id repeats or names a parent with no children entry.
func (t Tree) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for p, ok := t.parents[id]; ok && !seen[p]; p, ok = t.parents[p] {
		if _, group := t.children[p]; !group {
			break
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Descendants returns every node below id, breadth first.
// The walk stops descending into ids it has already visited.
func (t Tree) Descendants(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	queue := append([]string(nil), t.children[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out
}

// rollup derives the state of group from its children: On when all children
// are On, Off when none is On or Indeterminate, Indeterminate otherwise.
// A group without children is Off.
func (t Tree) rollup(group string, sel *Selection) State {
	kids := t.children[group]
	if len(kids) == 0 {
		return Off
	}
	allOn, allOff := true, true
	for _, k := range kids {
		switch sel.State(k) {
		case On:
			allOff = false
		case Indeterminate:
			allOn, allOff = false, false
		default:
			allOn = false
		}
		if !allOn && !allOff {
			return Indeterminate
		}
	}
	if allOn {
		return On
	}
	return Off
}

// rollupAncestors recomputes every ancestor of id, nearest first.
func (t Tree) rollupAncestors(id string, sel *Selection) {
	for _, p := range t.Ancestors(id) {
		sel.Set(p, t.rollup(p, sel))
	}
}

// markAncestors shows Indeterminate on every ancestor of id that is not
// itself On but has an On or Indeterminate child. Explicit On states are
// never changed, so the On list stays exactly what was selected.
func (t Tree) markAncestors(id string, sel *Selection) {
	for _, p := range t.Ancestors(id) {
		t.mark(p, sel)
	}
}

func (t Tree) mark(id string, sel *Selection) {
	if sel.State(id) == On {
		return
	}
	if t.rollup(id, sel) != Off {
		sel.Set(id, Indeterminate)
		return
	}
	if _, ok := sel.Get(id); ok {
		sel.Set(id, Off)
	}
}
