package treefile

import (
	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/pkg/nested"
)

// disposer is implemented by *nested.Item and *nested.Group.
type disposer interface {
	ID() string
	Dispose()
}

// Mount holds the accessors created by Build.
type Mount struct {
	handles []disposer
	groups  map[string]*nested.Group
	items   map[string]*nested.Item
}

// Group returns the group accessor for id.
func (m *Mount) Group(id string) (*nested.Group, bool) {
	g, ok := m.groups[id]
	return g, ok
}

// Item returns the item accessor for id.
func (m *Mount) Item(id string) (*nested.Item, bool) {
	it, ok := m.items[id]
	return it, ok
}

// Len returns the number of mounted accessors.
func (m *Mount) Len() int {
	return len(m.handles)
}

// Dispose unregisters every accessor, children before parents.
func (m *Mount) Dispose() {
	for i := len(m.handles) - 1; i >= 0; i-- {
		m.handles[i].Dispose()
	}
}

// Build creates a registry from the definition. The definition's strategies
// are applied first so opts can override them. Nodes are registered through
// accessors, then the initial opened and selected lists are bound.
func (d *Definition) Build(opts ...nested.Option) (*nested.Registry, *Mount, error) {
	open, err := nested.ParseOpenStrategy(d.Open)
	if err != nil {
		return nil, nil, errors.New("N103").WithDetail(err.Error())
	}
	sel, err := nested.ParseSelectStrategy(d.Select)
	if err != nil {
		return nil, nil, errors.New("N103").WithDetail(err.Error())
	}

	all := append([]nested.Option{
		nested.WithOpenStrategy(open),
		nested.WithSelectStrategy(sel),
	}, opts...)
	reg := nested.New(all...)

	m := &Mount{
		groups: make(map[string]*nested.Group),
		items:  make(map[string]*nested.Item),
	}
	var mount func(scope nested.Scope, nodes []Node)
	mount = func(scope nested.Scope, nodes []Node) {
		for _, n := range nodes {
			if n.IsGroup() {
				g := nested.NewGroup(scope, n.ID)
				m.groups[n.ID] = g
				m.handles = append(m.handles, g)
				mount(g, n.Children)
				continue
			}
			it := nested.NewItem(scope, n.ID)
			m.items[n.ID] = it
			m.handles = append(m.handles, it)
		}
	}
	mount(reg.Root(), d.Nodes)

	if len(d.Opened) > 0 {
		reg.SetOpened(d.Opened)
	}
	if len(d.Selected) > 0 {
		reg.SetSelected(d.Selected)
	}
	return reg, m, nil
}
