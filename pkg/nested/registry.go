package nested

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Op identifies a registry operation for observers.
type Op string

const (
	OpRegister    Op = "register"
	OpUnregister  Op = "unregister"
	OpOpen        Op = "open"
	OpSelect      Op = "select"
	OpSetOpened   Op = "set-opened"
	OpSetSelected Op = "set-selected"
)

// Observer is notified after every operation. changed reports whether the
// operation replaced or mutated registry state.
type Observer interface {
	ObserveOp(op Op, id string, changed bool)
}

// ChangeKind identifies which snapshot a Change describes.
type ChangeKind string

const (
	ChangeOpened   ChangeKind = "opened"
	ChangeSelected ChangeKind = "selected"
)

// Change is delivered to subscribers when Open or Select replaces a snapshot.
// Values is the externally visible list: open ids, or the active select
// strategy's Out list.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Values []string   `json:"values"`
}

// Snapshot is a point-in-time copy of every registry structure.
type Snapshot struct {
	Children map[string][]string `json:"children"`
	Parents  map[string]string   `json:"parents"`
	Opened   []string            `json:"opened"`
	Selected map[string]State    `json:"selected"`
	Values   []string            `json:"values"`
}

type subscriber struct {
	id uint64
	fn func(Change)
}

// Registry owns a forest of nested items and groups together with its open
// set and selection. All state is private; callers go through the methods.
type Registry struct {
	mu sync.Mutex

	children map[string][]string
	parents  map[string]string
	opened   *OpenSet
	selected *Selection

	openStrategy   OpenStrategy
	selectStrategy SelectStrategy

	closed bool

	pendingSelected []string

	logger   *slog.Logger
	observer Observer

	subs   []subscriber
	subMu  sync.RWMutex
	nextID atomic.Uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithOpenStrategy sets the open strategy.
func WithOpenStrategy(s OpenStrategy) Option {
	return func(r *Registry) {
		r.openStrategy = s
	}
}

// WithSelectStrategy sets the select strategy.
func WithSelectStrategy(s SelectStrategy) Option {
	return func(r *Registry) {
		r.selectStrategy = s
	}
}

// WithLogger sets the logger used for debug tracing of operations.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets an observer for every operation.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithOpened seeds the open set.
func WithOpened(ids []string) Option {
	return func(r *Registry) {
		r.opened = NewOpenSet(ids...)
	}
}

// WithSelected seeds the selection through the select strategy's In
// conversion. It is applied after every other option.
func WithSelected(ids []string) Option {
	return func(r *Registry) {
		r.pendingSelected = append([]string(nil), ids...)
	}
}

// New creates a Registry. Without options it uses the multiple open
// strategy and the classic select strategy.
func New(opts ...Option) *Registry {
	r := &Registry{
		children:       make(map[string][]string),
		parents:        make(map[string]string),
		opened:         NewOpenSet(),
		selected:       NewSelection(),
		openStrategy:   MultipleOpen,
		selectStrategy: ClassicSelect,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.openStrategy = normalizeOpen(r.openStrategy)
	r.selectStrategy = normalizeSelect(r.selectStrategy)
	if r.pendingSelected != nil {
		r.selected = r.selectStrategy.In(r.pendingSelected, r.tree())
		r.pendingSelected = nil
	}
	return r
}

func normalizeOpen(s OpenStrategy) OpenStrategy {
	if s.Open == nil {
		return MultipleOpen
	}
	return s
}

func normalizeSelect(s SelectStrategy) SelectStrategy {
	if s.Select == nil {
		return ClassicSelect
	}
	if s.In == nil || s.Out == nil {
		return CustomSelectStrategy(s.Name, s.Select, s.In, s.Out)
	}
	return s
}

func (r *Registry) tree() Tree {
	return Tree{children: r.children, parents: r.parents}
}

func (r *Registry) observe(op Op, id string, changed bool) {
	if r.observer != nil {
		r.observer.ObserveOp(op, id, changed)
	}
}

// Register records id under parentID. An empty parentID registers a root.
// Registering a node as its own parent is ignored and leaves it a root.
// Groups get an empty children entry unless they already have one.
// Calling Register again with the same arguments changes nothing.
func (r *Registry) Register(id, parentID string, isGroup bool) {
	r.mu.Lock()
	changed := r.register(id, parentID, isGroup)
	r.mu.Unlock()

	r.logger.Debug("nested register", "id", id, "parent", parentID, "group", isGroup)
	r.observe(OpRegister, id, changed)
}

func (r *Registry) register(id, parentID string, isGroup bool) bool {
	changed := false
	if parentID == id {
		parentID = ""
	}

	if old, ok := r.parents[id]; ok && old != parentID {
		r.detach(id, old)
		delete(r.parents, id)
		changed = true
	}

	if isGroup {
		if _, ok := r.children[id]; !ok {
			r.children[id] = []string{}
			changed = true
		}
	}

	if parentID != "" {
		if r.parents[id] != parentID {
			r.parents[id] = parentID
			changed = true
		}
		if !slices.Contains(r.children[parentID], id) {
			r.children[parentID] = append(r.children[parentID], id)
			changed = true
		}
	}
	return changed
}

// detach removes id from parent's child list.
func (r *Registry) detach(id, parent string) {
	list, ok := r.children[parent]
	if !ok {
		return
	}
	r.children[parent] = slices.DeleteFunc(slices.Clone(list), func(c string) bool { return c == id })
}

// Unregister removes every trace of id: its children entry, its place in
// its parent's list, its parent edge, its children's edges to it, and its
// open and selection state. The former parent chain is re-derived through
// the select strategy. After Close it does nothing.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Debug("nested unregister after close ignored", "id", id)
		r.observe(OpUnregister, id, false)
		return
	}

	kids, hadChildren := r.children[id]
	parent, hadParent := r.parents[id]
	hadOpen := r.opened.Has(id)
	_, hadSel := r.selected.Get(id)

	// Orphaned children become roots.
	for _, k := range kids {
		if r.parents[k] == id {
			delete(r.parents, k)
		}
	}
	delete(r.children, id)
	if hadParent {
		r.detach(id, parent)
	}
	delete(r.parents, id)
	r.opened.Delete(id)
	r.selected.Delete(id)
	if hadParent {
		r.rerollFrom(parent)
	}
	r.mu.Unlock()

	r.logger.Debug("nested unregister", "id", id)
	r.observe(OpUnregister, id, hadChildren || hadParent || hadOpen || hadSel)
}

// rerollFrom recomputes the selection of group and its ancestors after a
// child left. The chain takes the states the strategy's In produces from
// the current Out list. Callers hold r.mu.
func (r *Registry) rerollFrom(group string) {
	tree := r.tree()
	chain := append([]string{group}, tree.Ancestors(group)...)
	tracked := false
	for _, id := range chain {
		if _, ok := r.selected.Get(id); ok {
			tracked = true
			break
		}
	}
	if !tracked {
		return
	}
	fresh := r.selectStrategy.In(r.selectStrategy.Out(r.selected, tree), tree)
	for _, id := range chain {
		if st, ok := fresh.Get(id); ok {
			r.selected.Set(id, st)
		} else if _, ok := r.selected.Get(id); ok {
			r.selected.Set(id, Off)
		}
	}
}

// Open asks the open strategy to open or close id.
func (r *Registry) Open(id string, value bool, event any) {
	r.mu.Lock()
	next := r.openStrategy.Open(OpenRequest{
		ID:     id,
		Value:  value,
		Opened: r.opened.Clone(),
		Tree:   r.tree(),
		Event:  event,
	})
	var change *Change
	if next != nil {
		r.opened = next
		change = &Change{Kind: ChangeOpened, Values: next.IDs()}
	}
	r.mu.Unlock()

	r.logger.Debug("nested open", "id", id, "value", value, "changed", change != nil)
	r.observe(OpOpen, id, change != nil)
	if change != nil {
		r.notify(*change)
	}
}

// Select asks the select strategy to select or deselect id.
func (r *Registry) Select(id string, value bool, event any) {
	r.mu.Lock()
	tree := r.tree()
	next := r.selectStrategy.Select(SelectRequest{
		ID:       id,
		Value:    value,
		Selected: r.selected.Clone(),
		Tree:     tree,
		Event:    event,
	})
	var change *Change
	if next != nil {
		r.selected = next
		change = &Change{Kind: ChangeSelected, Values: r.selectStrategy.Out(next, tree)}
	}
	r.mu.Unlock()

	r.logger.Debug("nested select", "id", id, "value", value, "changed", change != nil)
	r.observe(OpSelect, id, change != nil)
	if change != nil {
		r.notify(*change)
	}
}

// SetOpened replaces the open set with ids, as when an external binding
// changes. Subscribers are not notified.
func (r *Registry) SetOpened(ids []string) {
	r.mu.Lock()
	r.opened = NewOpenSet(ids...)
	r.mu.Unlock()
	r.observe(OpSetOpened, "", true)
}

// SetSelected replaces the selection with the select strategy's In
// conversion of ids. Subscribers are not notified.
func (r *Registry) SetSelected(ids []string) {
	r.mu.Lock()
	r.selected = r.selectStrategy.In(ids, r.tree())
	r.mu.Unlock()
	r.observe(OpSetSelected, "", true)
}

// SetOpenStrategy switches the open strategy. The current open set is kept.
func (r *Registry) SetOpenStrategy(s OpenStrategy) {
	r.mu.Lock()
	r.openStrategy = normalizeOpen(s)
	r.mu.Unlock()
}

// SetSelectStrategy switches the select strategy. The current selection is
// kept as is.
func (r *Registry) SetSelectStrategy(s SelectStrategy) {
	r.mu.Lock()
	r.selectStrategy = normalizeSelect(s)
	r.mu.Unlock()
}

// OpenStrategy returns the active open strategy.
func (r *Registry) OpenStrategy() OpenStrategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openStrategy
}

// SelectStrategy returns the active select strategy.
func (r *Registry) SelectStrategy() SelectStrategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectStrategy
}

// Close marks the registry as torn down. Later Unregister calls are ignored
// so a late detach cannot mutate state its owner has finished with.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Opened returns the open ids in insertion order.
func (r *Registry) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened.IDs()
}

// IsOpen reports whether id is open.
func (r *Registry) IsOpen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened.Has(id)
}

// SelectedValues returns every id whose state is On, in insertion order.
func (r *Registry) SelectedValues() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected.On()
}

// Out returns the external selection list as defined by the select strategy.
func (r *Registry) Out() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectStrategy.Out(r.selected, r.tree())
}

// State returns the selection state of id.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected.State(id)
}

// Parent returns the parent of id. Roots and unknown ids report false.
func (r *Registry) Parent(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parents[id]
	return p, ok
}

// Children returns the child ids of id in registration order.
func (r *Registry) Children(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree().Children(id)
}

// IsGroup reports whether id has a children entry.
func (r *Registry) IsGroup(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.children[id]
	return ok
}

// Roots returns the group ids without a parent, sorted. Root leaves leave no
// structural trace and are not reported.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var roots []string
	add := func(id string) {
		if _, ok := r.parents[id]; ok || seen[id] {
			return
		}
		seen[id] = true
		roots = append(roots, id)
	}
	for id := range r.children {
		add(id)
	}
	slices.Sort(roots)
	return roots
}

// Snapshot returns a copy of every registry structure.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	children := make(map[string][]string, len(r.children))
	for id, kids := range r.children {
		children[id] = slices.Clone(kids)
	}
	parents := make(map[string]string, len(r.parents))
	for id, p := range r.parents {
		parents[id] = p
	}
	return Snapshot{
		Children: children,
		Parents:  parents,
		Opened:   r.opened.IDs(),
		Selected: r.selected.Map(),
		Values:   r.selectStrategy.Out(r.selected, r.tree()),
	}
}

// Subscribe registers fn for Change notifications and returns a function
// that removes it. fn runs on the goroutine that performed the operation,
// after the registry lock is released.
func (r *Registry) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := r.nextID.Add(1)

	r.subMu.Lock()
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *Registry) notify(c Change) {
	r.subMu.RLock()
	subs := make([]subscriber, len(r.subs))
	copy(subs, r.subs)
	r.subMu.RUnlock()

	for _, s := range subs {
		s.fn(c)
	}
}
