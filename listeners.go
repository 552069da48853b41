// listeners.go: Change notification for configuration nodes
//
// Listeners are registered per node and called synchronously, in
// registration order, on the goroutine performing the mutation. Delivery
// works on a snapshot of the registrations taken when the change happens,
// so a listener added while notifications are running is not called for
// that same change.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import "sync"

// ValueChangeEvent describes a key whose value was set or removed.
type ValueChangeEvent struct {
	Node     *Node
	Key      string
	OldValue string
	NewValue string
	// Existed is false when the key had no value before the change
	Existed bool
	// Removed is true when the key no longer has a value
	Removed bool
}

// StructureChangeKind tells whether a child was added or removed.
type StructureChangeKind int

const (
	ChildAdded StructureChangeKind = iota
	ChildRemoved
)

// String returns the kind name.
func (k StructureChangeKind) String() string {
	switch k {
	case ChildAdded:
		return "added"
	case ChildRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// StructureChangeEvent describes a child node added to or removed from Parent.
type StructureChangeEvent struct {
	Parent *Node
	Child  *Node
	Kind   StructureChangeKind
}

// ValueListener is notified of value changes on a node. Implementations
// must be comparable (usually pointer types): identity decides whether a
// registration is a duplicate.
type ValueListener interface {
	ValueChanged(event ValueChangeEvent)
}

// StructureListener is notified of children added to or removed from a
// node. Implementations must be comparable.
type StructureListener interface {
	StructureChanged(event StructureChangeEvent)
}

// listenerSet keeps registrations in order, without duplicates.
type listenerSet[L comparable] struct {
	mu    sync.Mutex
	items []L
}

func (s *listenerSet[L]) add(l L) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing == l {
			return
		}
	}
	// copy on write keeps earlier snapshots stable
	items := make([]L, len(s.items), len(s.items)+1)
	copy(items, s.items)
	s.items = append(items, l)
}

func (s *listenerSet[L]) remove(l L) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.items {
		if existing == l {
			items := make([]L, 0, len(s.items)-1)
			items = append(items, s.items[:i]...)
			s.items = append(items, s.items[i+1:]...)
			return
		}
	}
}

func (s *listenerSet[L]) snapshot() []L {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// AddValueListener registers l for value changes on n. Adding the same
// listener twice has no effect.
func (n *Node) AddValueListener(l ValueListener) {
	if l != nil {
		n.valueListeners.add(l)
	}
}

// RemoveValueListener unregisters l. Removing an unknown listener is a no-op.
func (n *Node) RemoveValueListener(l ValueListener) {
	if l != nil {
		n.valueListeners.remove(l)
	}
}

// AddStructureListener registers l for child additions and removals on n.
func (n *Node) AddStructureListener(l StructureListener) {
	if l != nil {
		n.structureListeners.add(l)
	}
}

// RemoveStructureListener unregisters l.
func (n *Node) RemoveStructureListener(l StructureListener) {
	if l != nil {
		n.structureListeners.remove(l)
	}
}

func (n *Node) fireValue(event ValueChangeEvent) {
	for _, l := range n.valueListeners.snapshot() {
		l.ValueChanged(event)
	}
}

func (n *Node) fireStructure(event StructureChangeEvent) {
	for _, l := range n.structureListeners.snapshot() {
		l.StructureChanged(event)
	}
}
