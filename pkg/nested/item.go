package nested

import "sync"

// Scope is the parent context a new accessor registers under: the registry
// root or a Group. It is passed explicitly to every constructor.
type Scope interface {
	registry() *Registry
	scopeID() string
}

// rootScope registers nodes without a parent.
type rootScope struct{ r *Registry }

func (s rootScope) registry() *Registry { return s.r }
func (s rootScope) scopeID() string     { return "" }

// Root returns the top-level scope of r.
func (r *Registry) Root() Scope {
	return rootScope{r: r}
}

// Item creates a root-level item. See NewItem.
func (r *Registry) Item(id string) *Item {
	return NewItem(r.Root(), id)
}

// Group creates a root-level group. See NewGroup.
func (r *Registry) Group(id string) *Group {
	return NewGroup(r.Root(), id)
}

// node holds what items and groups share: the registry, a fixed id and the
// single-shot unregister.
type node struct {
	reg  *Registry
	id   string
	once sync.Once
}

// Item is the handle of a single leaf node. It registers on creation and
// unregisters once on Dispose.
type Item struct {
	node
}

// NewItem registers a leaf under scope. An empty id is replaced by a
// generated one that stays fixed for the item's lifetime.
func NewItem(scope Scope, id string) *Item {
	if id == "" {
		id = NextID()
	}
	it := &Item{node: node{reg: scope.registry(), id: id}}
	it.reg.Register(id, scope.scopeID(), false)
	return it
}

// ID returns the node id.
func (it *node) ID() string { return it.id }

// Registry returns the registry the item belongs to.
func (it *node) Registry() *Registry { return it.reg }

// Parent returns the parent id, if any.
func (it *node) Parent() (string, bool) {
	return it.reg.Parent(it.id)
}

// IsSelected reports whether the node's state is On.
func (it *node) IsSelected() bool {
	return it.reg.State(it.id) == On
}

// Select selects or deselects the node.
func (it *node) Select(value bool, event any) {
	it.reg.Select(it.id, value, event)
}

// Dispose unregisters the node. Only the first call has an effect.
func (it *node) Dispose() {
	it.once.Do(func() {
		it.reg.Unregister(it.id)
	})
}

// Group is the handle of a container node. It is also a Scope for its
// children.
type Group struct {
	node
}

// NewGroup registers a group under scope. An empty id is generated.
func NewGroup(scope Scope, id string) *Group {
	if id == "" {
		id = NextID()
	}
	g := &Group{node: node{reg: scope.registry(), id: id}}
	g.reg.Register(id, scope.scopeID(), true)
	return g
}

func (g *Group) registry() *Registry { return g.reg }
func (g *Group) scopeID() string     { return g.id }

// Item creates a child item of g.
func (g *Group) Item(id string) *Item {
	return NewItem(g, id)
}

// Group creates a child group of g.
func (g *Group) Group(id string) *Group {
	return NewGroup(g, id)
}

// IsOpen reports whether the group is open.
func (g *Group) IsOpen() bool {
	return g.reg.IsOpen(g.id)
}

// IsIndeterminate reports whether some but not all descendants are selected.
func (g *Group) IsIndeterminate() bool {
	return g.reg.State(g.id) == Indeterminate
}

// Open opens or closes the group.
func (g *Group) Open(value bool, event any) {
	g.reg.Open(g.id, value, event)
}

// Children returns the ids registered under the group.
func (g *Group) Children() []string {
	return g.reg.Children(g.id)
}
