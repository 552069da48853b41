// node.go: Hierarchical configuration tree
//
// Nodes hold string values by key and named children. Paths use '/' as
// separator; consecutive separators collapse, an empty path addresses the
// node itself and a leading '/' resolves from the tree root. Resolving a
// path with Node creates every missing node along the way.
//
// All nodes of one tree share a single RWMutex guarding their maps.
// Listeners are always called after that lock has been released.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PathSeparator separates node names in a path.
const PathSeparator = "/"

type tree struct {
	mu sync.RWMutex
}

// Node is one addressable node of a configuration tree. Nodes are created
// through NewNode, RootNode or path resolution; the zero value is not usable.
type Node struct {
	name     string
	parent   *Node
	tree     *tree
	values   map[string]string
	children map[string]*Node

	valueListeners     listenerSet[ValueListener]
	structureListeners listenerSet[StructureListener]
}

// NewNode creates the root of a new, detached tree.
func NewNode() *Node {
	return newNode("", nil, &tree{})
}

func newNode(name string, parent *Node, t *tree) *Node {
	return &Node{
		name:     name,
		parent:   parent,
		tree:     t,
		values:   make(map[string]string),
		children: make(map[string]*Node),
	}
}

// Name returns the node name. The root has an empty name.
func (n *Node) Name() string { return n.name }

// Parent returns the parent node, or nil for the root or a removed node.
func (n *Node) Parent() *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.parent
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.rootLocked()
}

func (n *Node) rootLocked() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Path returns the absolute path of n, "/" for the root.
func (n *Node) Path() string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.pathLocked()
}

func (n *Node) pathLocked() string {
	if n.parent == nil {
		return PathSeparator
	}
	var names []string
	for c := n; c.parent != nil; c = c.parent {
		names = append(names, c.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return PathSeparator + strings.Join(names, PathSeparator)
}

// sectionName is the path used in section headers: no leading separator,
// empty for the root.
func (n *Node) sectionName() string {
	return strings.TrimPrefix(n.pathLocked(), PathSeparator)
}

// splitPath returns the non-empty segments of path and whether it is absolute.
func splitPath(path string) (absolute bool, segments []string) {
	absolute = strings.HasPrefix(path, PathSeparator)
	for _, s := range strings.Split(path, PathSeparator) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return absolute, segments
}

// Get returns the value of key, or def when the key is absent.
func (n *Node) Get(key, def string) string {
	if v, ok := n.Lookup(key); ok {
		return v
	}
	return def
}

// Lookup returns the value of key and whether it is present.
func (n *Node) Lookup(key string) (string, bool) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	v, ok := n.values[key]
	return v, ok
}

// Put sets key to value. Listeners are notified only when the stored value
// actually changes.
func (n *Node) Put(key, value string) {
	n.tree.mu.Lock()
	old, existed := n.values[key]
	if existed && old == value {
		n.tree.mu.Unlock()
		return
	}
	n.values[key] = value
	n.tree.mu.Unlock()

	n.fireValue(ValueChangeEvent{
		Node:     n,
		Key:      key,
		OldValue: old,
		NewValue: value,
		Existed:  existed,
	})
}

// Remove deletes key. It reports whether the key was present.
func (n *Node) Remove(key string) bool {
	n.tree.mu.Lock()
	old, existed := n.values[key]
	if !existed {
		n.tree.mu.Unlock()
		return false
	}
	delete(n.values, key)
	n.tree.mu.Unlock()

	n.fireValue(ValueChangeEvent{
		Node:     n,
		Key:      key,
		OldValue: old,
		Existed:  true,
		Removed:  true,
	})
	return true
}

// Keys returns the keys of n in sorted order.
func (n *Node) Keys() []string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return sortedKeys(n.values)
}

// Values returns a copy of the values of n.
func (n *Node) Values() map[string]string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	out := make(map[string]string, len(n.values))
	for k, v := range n.values {
		out[k] = v
	}
	return out
}

// Node resolves path relative to n, creating missing nodes. Each creation
// is announced to the structure listeners of the new node's parent.
func (n *Node) Node(path string) *Node {
	absolute, segments := splitPath(path)

	var created []StructureChangeEvent
	n.tree.mu.Lock()
	cur := n
	if absolute {
		cur = n.rootLocked()
	}
	for _, name := range segments {
		child, ok := cur.children[name]
		if !ok {
			child = newNode(name, cur, cur.tree)
			cur.children[name] = child
			created = append(created, StructureChangeEvent{Parent: cur, Child: child, Kind: ChildAdded})
		}
		cur = child
	}
	n.tree.mu.Unlock()

	for _, event := range created {
		event.Parent.fireStructure(event)
	}
	return cur
}

// Find resolves path like Node but never creates nodes. It returns nil
// when any node along the path is missing.
func (n *Node) Find(path string) *Node {
	absolute, segments := splitPath(path)

	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	cur := n
	if absolute {
		cur = n.rootLocked()
	}
	for _, name := range segments {
		child, ok := cur.children[name]
		if !ok {
			return nil
		}
		cur = child
	}
	return cur
}

// Child returns the direct child called name, or nil.
func (n *Node) Child(name string) *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.children[name]
}

// Children returns the direct children of n sorted by name.
func (n *Node) Children() []*Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.childrenLocked()
}

func (n *Node) childrenLocked() []*Node {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = n.children[name]
	}
	return out
}

// RemoveChild detaches the child called name together with its subtree.
// It reports whether such a child existed.
func (n *Node) RemoveChild(name string) bool {
	n.tree.mu.Lock()
	child, ok := n.children[name]
	if !ok {
		n.tree.mu.Unlock()
		return false
	}
	delete(n.children, name)
	child.parent = nil
	n.tree.mu.Unlock()

	n.fireStructure(StructureChangeEvent{Parent: n, Child: child, Kind: ChildRemoved})
	return true
}

// RemoveNode detaches n from its parent. It is a no-op on a root.
func (n *Node) RemoveNode() {
	parent := n.Parent()
	if parent != nil {
		parent.RemoveChild(n.name)
	}
}

// Clear removes every value and child of n.
func (n *Node) Clear() {
	for _, key := range n.Keys() {
		n.Remove(key)
	}
	for _, child := range n.Children() {
		n.RemoveChild(child.name)
	}
}

// Flatten returns a copy of the subtree as section name to values. The
// node n itself is keyed "/" when it is a root, otherwise by its section
// name. Sections appear when they hold values or have no children, the
// same rule the writer uses.
func (n *Node) Flatten() map[string]map[string]string {
	out := make(map[string]map[string]string)
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	n.walkLocked(func(node *Node) {
		name := node.sectionName()
		if name == "" {
			name = PathSeparator
		}
		values := make(map[string]string, len(node.values))
		for k, v := range node.values {
			values[k] = v
		}
		out[name] = values
	})
	return out
}

// walkLocked visits n and its descendants depth first in name order,
// calling fn for each node that should produce a section. The root is
// always visited. Caller holds the tree lock.
func (n *Node) walkLocked(fn func(*Node)) {
	if n.parent == nil || len(n.values) > 0 || len(n.children) == 0 {
		fn(n)
	}
	for _, c := range n.childrenLocked() {
		c.walkLocked(fn)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetInt returns key parsed as a base 10 integer, or def.
func (n *Node) GetInt(key string, def int) int {
	v, ok := n.Lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// PutInt stores value in base 10.
func (n *Node) PutInt(key string, value int) {
	n.Put(key, strconv.Itoa(value))
}

// GetBool returns key parsed with strconv.ParseBool, or def.
func (n *Node) GetBool(key string, def bool) bool {
	v, ok := n.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// PutBool stores "true" or "false".
func (n *Node) PutBool(key string, value bool) {
	n.Put(key, strconv.FormatBool(value))
}

// GetFloat returns key parsed as a float64, or def.
func (n *Node) GetFloat(key string, def float64) float64 {
	v, ok := n.Lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// PutFloat stores value in the shortest exact representation.
func (n *Node) PutFloat(key string, value float64) {
	n.Put(key, strconv.FormatFloat(value, 'g', -1, 64))
}

// GetDuration returns key parsed with time.ParseDuration, or def.
func (n *Node) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := n.Lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// PutDuration stores value as a duration string such as "1m30s".
func (n *Node) PutDuration(key string, value time.Duration) {
	n.Put(key, value.String())
}

// GetStrings returns key split on commas with surrounding spaces trimmed,
// or def. An empty value yields an empty, non-nil slice.
func (n *Node) GetStrings(key string, def []string) []string {
	v, ok := n.Lookup(key)
	if !ok {
		return def
	}
	if strings.TrimSpace(v) == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// PutStrings stores values joined by ", ". Elements containing commas do
// not survive GetStrings.
func (n *Node) PutStrings(key string, values []string) {
	n.Put(key, strings.Join(values, ", "))
}

// mirror makes n hold exactly the values and children of src, firing the
// usual notifications for every difference.
func (n *Node) mirror(src *Node) {
	want := src.Values()
	for _, k := range n.Keys() {
		if _, ok := want[k]; !ok {
			n.Remove(k)
		}
	}
	for _, k := range sortedKeys(want) {
		n.Put(k, want[k])
	}

	for _, c := range n.Children() {
		if src.Child(c.name) == nil {
			n.RemoveChild(c.name)
		}
	}
	for _, sc := range src.Children() {
		n.Node(sc.name).mirror(sc)
	}
}
