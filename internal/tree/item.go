// Package tree implements the hierarchical folder/note store.
//
// Items form an ordered forest: folders nest arbitrarily deep, notes are
// leaves. Every ID is unique across the whole forest.
package tree

// ItemType discriminates the two item variants.
type ItemType string

const (
	TypeFolder ItemType = "folder"
	TypeNote   ItemType = "note"
)

// Item is one node in the forest: a folder or a note.
//
// JSON field names match the wire format of the folders API. Name is set on
// folders only; Title and Content on notes only. Children is populated on
// folders in the nested wire form; inside Tree the hierarchy is kept in a
// separate index and Children is nil.
type Item struct {
	ID         string   `json:"id"`
	Type       ItemType `json:"type"`
	Name       string   `json:"name,omitempty"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content,omitempty"`
	Children   []*Item  `json:"children,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	LastUpdate int64    `json:"lastUpdate"`
	IsLocal    bool     `json:"isLocal,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (it *Item) IsFolder() bool {
	return it != nil && it.Type == TypeFolder
}

// Clone returns a deep copy of the item and its subtree.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	if it.Children != nil {
		cp.Children = make([]*Item, len(it.Children))
		for i, c := range it.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}
