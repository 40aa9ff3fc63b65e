package tree

import (
	"fmt"

	"github.com/starford/laguz/internal/apperr"
)

// Tree is an ordered forest of items indexed by ID.
//
// Nodes are kept flat in an ID-keyed arena with a separate parent/children
// index, so lookup and removal are independent of nesting depth and no two
// callers ever alias a shared children slice. The nested form expected on
// the wire is materialized on demand by Items.
//
// Tree itself is not safe for concurrent use; the owning store serializes
// access to it.
type Tree struct {
	nodes    map[string]*Item    // children always nil here
	children map[string][]string // folder ID -> ordered child IDs
	parent   map[string]string   // child ID -> parent folder ID
	roots    []string
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:    map[string]*Item{},
		children: map[string][]string{},
		parent:   map[string]string{},
	}
}

// Len returns the total number of items in the forest.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Contains reports whether an item with the given ID exists anywhere in the
// forest.
func (t *Tree) Contains(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Find returns the item with the given ID, or nil. The returned item has no
// Children attached; use Items for the nested form.
func (t *Tree) Find(id string) *Item {
	return t.nodes[id]
}

// ParentID returns the ID of the folder containing id, or "" when id is a
// root item or absent.
func (t *Tree) ParentID(id string) string {
	return t.parent[id]
}

// Append inserts item (and any subtree carried in its Children) under the
// folder identified by parentID, or at the end of the root list when
// parentID is empty. It returns apperr.ErrParentNotFound when the parent is
// missing or not a folder, and an error when any inserted ID already exists.
func (t *Tree) Append(item *Item, parentID string) error {
	if parentID != "" {
		parent, ok := t.nodes[parentID]
		if !ok || !parent.IsFolder() {
			return apperr.ErrParentNotFound
		}
	}
	if err := t.checkFresh(item); err != nil {
		return err
	}
	t.insert(item, parentID)
	return nil
}

func (t *Tree) checkFresh(item *Item) error {
	if t.Contains(item.ID) {
		return fmt.Errorf("tree: duplicate id %q", item.ID)
	}
	for _, c := range item.Children {
		if err := t.checkFresh(c); err != nil {
			return err
		}
	}
	return nil
}

// insert stores item and its subtree into the arena under parentID. Nodes
// whose ID is already present are skipped along with their subtree (first
// occurrence wins), so a malformed nested forest cannot break ID uniqueness.
func (t *Tree) insert(item *Item, parentID string) {
	if t.Contains(item.ID) {
		return
	}
	node := *item
	kids := node.Children
	node.Children = nil
	t.nodes[node.ID] = &node

	if parentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		t.children[parentID] = append(t.children[parentID], node.ID)
		t.parent[node.ID] = parentID
	}
	for _, c := range kids {
		t.insert(c, node.ID)
	}
}

// Remove splices the item with the given ID out of its parent's children (or
// the root list) and drops its entire subtree from the arena. It reports
// whether anything was removed.
func (t *Tree) Remove(id string) bool {
	if !t.Contains(id) {
		return false
	}
	if parentID, ok := t.parent[id]; ok {
		t.children[parentID] = spliceID(t.children[parentID], id)
	} else {
		t.roots = spliceID(t.roots, id)
	}
	t.drop(id)
	return true
}

// drop deletes id and all its descendants from the arena maps.
func (t *Tree) drop(id string) {
	for _, c := range t.children[id] {
		t.drop(c)
	}
	delete(t.children, id)
	delete(t.parent, id)
	delete(t.nodes, id)
}

// Rename rewrites the ID of an existing item in place, preserving its
// position in the forest and its children. Used when a local placeholder ID
// is replaced by the server-assigned one.
func (t *Tree) Rename(oldID, newID string) error {
	node, ok := t.nodes[oldID]
	if !ok {
		return apperr.ErrItemNotFound
	}
	if oldID == newID {
		return nil
	}
	if t.Contains(newID) {
		return fmt.Errorf("tree: duplicate id %q", newID)
	}

	delete(t.nodes, oldID)
	node.ID = newID
	t.nodes[newID] = node

	if parentID, ok := t.parent[oldID]; ok {
		delete(t.parent, oldID)
		t.parent[newID] = parentID
		replaceID(t.children[parentID], oldID, newID)
	} else {
		replaceID(t.roots, oldID, newID)
	}

	if kids, ok := t.children[oldID]; ok {
		delete(t.children, oldID)
		t.children[newID] = kids
		for _, c := range kids {
			t.parent[c] = newID
		}
	}
	return nil
}

// Items materializes the forest in its nested wire form. The result shares
// no memory with the tree.
func (t *Tree) Items() []*Item {
	out := make([]*Item, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.materialize(id))
	}
	return out
}

func (t *Tree) materialize(id string) *Item {
	node := *t.nodes[id]
	if node.Type == TypeFolder {
		kids := t.children[id]
		node.Children = make([]*Item, 0, len(kids))
		for _, c := range kids {
			node.Children = append(node.Children, t.materialize(c))
		}
	}
	return &node
}

// Subtree returns the item with the given ID in nested form (children
// materialized), or nil. The result shares no memory with the tree.
func (t *Tree) Subtree(id string) *Item {
	if !t.Contains(id) {
		return nil
	}
	return t.materialize(id)
}

// SetItems replaces the whole forest with the given nested items. Duplicate
// IDs anywhere in the input, root or nested, are skipped with their subtree
// (first occurrence wins), keeping the uniqueness invariant.
func (t *Tree) SetItems(items []*Item) {
	t.nodes = map[string]*Item{}
	t.children = map[string][]string{}
	t.parent = map[string]string{}
	t.roots = nil
	for _, it := range items {
		if it == nil {
			continue
		}
		t.insert(it, "")
	}
}

// Walk visits every item in depth-first pre-order. It stops early when fn
// returns false. Visited items have no Children attached.
func (t *Tree) Walk(fn func(*Item) bool) {
	var visit func(id string) bool
	visit = func(id string) bool {
		if !fn(t.nodes[id]) {
			return false
		}
		for _, c := range t.children[id] {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, id := range t.roots {
		if !visit(id) {
			return
		}
	}
}

func spliceID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func replaceID(ids []string, oldID, newID string) {
	for i, v := range ids {
		if v == oldID {
			ids[i] = newID
			return
		}
	}
}
