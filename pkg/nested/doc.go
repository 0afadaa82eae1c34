// Package nested coordinates open and selected state across a forest of
// items and groups.
//
// A Registry owns the forest as two flat maps keyed by id (children and
// parents) plus two snapshots: the set of open groups and a tri-state
// selection map. Every change goes through a strategy, a pure function that
// receives a private copy of the current snapshot and returns the next one
// (or nil for no change).
//
// # Strategies
//
// Open strategies:
//   - multiple: any number of branches open at once
//   - single: opening a group closes every branch outside its ancestor chain
//
// Select strategies:
//   - classic: cascade to descendants, roll ancestors up to on/off/indeterminate
//   - independent: only the requested node changes
//   - leaf: only leaves are selectable, groups are derived
//   - single-leaf: leaf with at most one selected leaf
//
// Callers may supply their own via CustomOpenStrategy and CustomSelectStrategy.
//
// # Accessors
//
// Item and Group are per-node handles. They register themselves on creation
// under an explicit Scope and unregister once on Dispose:
//
//	reg := nested.New(nested.WithSelectStrategy(nested.ClassicSelect))
//	fruits := reg.Group("fruits")
//	apple := fruits.Item("apple")
//	fruits.Item("pear")
//
//	apple.Select(true, nil)
//	fruits.IsIndeterminate() // true
//	reg.Out()                // ["apple"]
//
// # External binding
//
// SetOpened and SetSelected feed an externally owned id list back into the
// registry. Subscribe delivers the externally visible lists after every Open
// or Select that changed something.
//
// # Thread Safety
//
// Operations are serialised by a mutex. Strategies run while it is held and
// must not call back into the registry; subscribers and observers run after it
// is released.
package nested
