package nested

import (
	"fmt"
	"strings"
)

// Built-in open strategy names.
const (
	OpenMultiple = "multiple"
	OpenSingle   = "single"
)

// OpenRequest is the input of an open strategy.
type OpenRequest struct {
	// ID is the group being opened or closed.
	ID string

	// Value is true to open, false to close.
	Value bool

	// Opened is a private copy of the current open set. Strategies may
	// modify and return it.
	Opened *OpenSet

	// Tree is the forest at the time of the request.
	Tree Tree

	// Event is the originating event, passed through untouched.
	Event any
}

// OpenFunc computes the next open set. Returning nil leaves the current set
// in place.
type OpenFunc func(req OpenRequest) *OpenSet

// OpenStrategy is a named open policy.
type OpenStrategy struct {
	Name string
	Open OpenFunc
}

// MultipleOpen lets any number of branches be open at once. Opening a group
// also opens its ancestors.
var MultipleOpen = OpenStrategy{Name: OpenMultiple, Open: multipleOpen}

// SingleOpen keeps at most one branch open per level: opening a group closes
// everything outside its ancestor chain.
var SingleOpen = OpenStrategy{Name: OpenSingle, Open: singleOpen}

func multipleOpen(req OpenRequest) *OpenSet {
	opened := req.Opened
	if !req.Value {
		opened.Delete(req.ID)
		return opened
	}
	ancestors := req.Tree.Ancestors(req.ID)
	for i := len(ancestors) - 1; i >= 0; i-- {
		opened.Add(ancestors[i])
	}
	opened.Add(req.ID)
	return opened
}

func singleOpen(req OpenRequest) *OpenSet {
	if !req.Value {
		req.Opened.Delete(req.ID)
		return req.Opened
	}
	ancestors := req.Tree.Ancestors(req.ID)
	opened := NewOpenSet()
	// Outermost first so Opened() reads top-down.
	for i := len(ancestors) - 1; i >= 0; i-- {
		opened.Add(ancestors[i])
	}
	opened.Add(req.ID)
	return opened
}

// OpenStrategyNames lists the built-in open strategies.
func OpenStrategyNames() []string {
	return []string{OpenSingle, OpenMultiple}
}

// ParseOpenStrategy resolves a built-in open strategy by name.
// The empty name selects multiple.
func ParseOpenStrategy(name string) (OpenStrategy, error) {
	switch name {
	case "", OpenMultiple:
		return MultipleOpen, nil
	case OpenSingle:
		return SingleOpen, nil
	default:
		return OpenStrategy{}, fmt.Errorf("nested: unknown open strategy %q (valid: %s)",
			name, strings.Join(OpenStrategyNames(), ", "))
	}
}

// CustomOpenStrategy wraps a caller-supplied function. It is used as-is.
func CustomOpenStrategy(name string, fn OpenFunc) OpenStrategy {
	if name == "" {
		name = "custom"
	}
	return OpenStrategy{Name: name, Open: fn}
}
