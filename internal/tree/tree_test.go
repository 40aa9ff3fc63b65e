package tree

import "testing"

// buildForest returns a tree shaped like:
//
//	f1/
//	  f2/
//	    n3
//	  n2
//	n1
func buildForest(t *testing.T) *Tree {
	t.Helper()
	tr := New()
	tr.SetItems([]*Item{
		{
			ID: "f1", Type: TypeFolder, Name: "Projects",
			Children: []*Item{
				{
					ID: "f2", Type: TypeFolder, Name: "Go",
					Children: []*Item{
						{ID: "n3", Type: TypeNote, Title: "Deep"},
					},
				},
				{ID: "n2", Type: TypeNote, Title: "Shallow"},
			},
		},
		{ID: "n1", Type: TypeNote, Title: "Root"},
	})
	return tr
}

func TestFindNested(t *testing.T) {
	tr := buildForest(t)

	for _, id := range []string{"f1", "f2", "n1", "n2", "n3"} {
		if tr.Find(id) == nil {
			t.Errorf("Find(%q) = nil, want item", id)
		}
	}
	if tr.Find("missing") != nil {
		t.Error("Find(missing) returned an item")
	}
	if got := tr.Find("n3").Title; got != "Deep" {
		t.Errorf("n3 title = %q", got)
	}
}

func TestParentID(t *testing.T) {
	tr := buildForest(t)

	if got := tr.ParentID("n3"); got != "f2" {
		t.Errorf("ParentID(n3) = %q, want f2", got)
	}
	if got := tr.ParentID("n1"); got != "" {
		t.Errorf("ParentID(n1) = %q, want empty", got)
	}
}

func TestRemoveSubtree(t *testing.T) {
	tr := buildForest(t)

	if !tr.Remove("f1") {
		t.Fatal("Remove(f1) = false")
	}
	// Every descendant is gone, regardless of depth.
	for _, id := range []string{"f1", "f2", "n2", "n3"} {
		if tr.Find(id) != nil {
			t.Errorf("Find(%q) found item after subtree removal", id)
		}
	}
	if tr.Find("n1") == nil {
		t.Error("unrelated root removed")
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}

func TestRemoveMissing(t *testing.T) {
	tr := buildForest(t)
	if tr.Remove("missing") {
		t.Error("Remove(missing) = true")
	}
	if tr.Len() != 5 {
		t.Errorf("Len = %d, want 5", tr.Len())
	}
}

func TestAppendToFolder(t *testing.T) {
	tr := buildForest(t)

	if err := tr.Append(&Item{ID: "n4", Type: TypeNote, Title: "New"}, "f2"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f2 := tr.Subtree("f2")
	if len(f2.Children) != 2 || f2.Children[1].ID != "n4" {
		t.Errorf("f2 children = %+v, want n3 then n4", f2.Children)
	}
}

func TestAppendParentNotFound(t *testing.T) {
	tr := buildForest(t)

	if err := tr.Append(&Item{ID: "x", Type: TypeNote}, "missing"); err == nil {
		t.Error("expected error for missing parent")
	}
	// A note can never be a parent.
	if err := tr.Append(&Item{ID: "x", Type: TypeNote}, "n1"); err == nil {
		t.Error("expected error for note parent")
	}
	if tr.Contains("x") {
		t.Error("failed append mutated the tree")
	}
}

func TestAppendDuplicateID(t *testing.T) {
	tr := buildForest(t)
	if err := tr.Append(&Item{ID: "n1", Type: TypeNote}, ""); err == nil {
		t.Error("expected error for duplicate id")
	}
	if tr.Len() != 5 {
		t.Errorf("Len = %d, want 5", tr.Len())
	}
}

func TestRenamePreservesPositionAndChildren(t *testing.T) {
	tr := buildForest(t)

	if err := tr.Rename("f2", "folder_srv_9"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if tr.Find("f2") != nil {
		t.Error("old id still present")
	}
	f1 := tr.Subtree("f1")
	if f1.Children[0].ID != "folder_srv_9" {
		t.Errorf("renamed folder moved: children = %+v", f1.Children)
	}
	if len(f1.Children[0].Children) != 1 || f1.Children[0].Children[0].ID != "n3" {
		t.Error("children lost on rename")
	}
	if got := tr.ParentID("n3"); got != "folder_srv_9" {
		t.Errorf("ParentID(n3) = %q after rename", got)
	}
}

func TestItemsRoundTrip(t *testing.T) {
	tr := buildForest(t)

	items := tr.Items()
	if len(items) != 2 {
		t.Fatalf("roots = %d, want 2", len(items))
	}

	tr2 := New()
	tr2.SetItems(items)
	if tr2.Len() != tr.Len() {
		t.Errorf("round-trip Len = %d, want %d", tr2.Len(), tr.Len())
	}
	if tr2.Find("n3") == nil {
		t.Error("nested note lost in round trip")
	}
}

func TestSetItemsSkipsNestedDuplicates(t *testing.T) {
	// The same ID under two parents, as a corrupt-but-decodable snapshot
	// could carry. The first occurrence wins; the second subtree is dropped.
	tr := New()
	tr.SetItems([]*Item{
		{ID: "a", Type: TypeFolder, Name: "A", Children: []*Item{
			{ID: "d", Type: TypeNote, Title: "First"},
		}},
		{ID: "b", Type: TypeFolder, Name: "B", Children: []*Item{
			{ID: "d", Type: TypeNote, Title: "Second"},
		}},
	})

	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}
	var seen int
	tr.Walk(func(it *Item) bool {
		if it.ID == "d" {
			seen++
		}
		return true
	})
	if seen != 1 {
		t.Fatalf("duplicate id visited %d times, want 1", seen)
	}
	if got := tr.Find("d").Title; got != "First" {
		t.Errorf("kept item = %q, want the first occurrence", got)
	}
	if got := tr.ParentID("d"); got != "a" {
		t.Errorf("ParentID(d) = %q, want a", got)
	}

	// Removing the survivor must leave no dangling child reference behind.
	if !tr.Remove("d") {
		t.Fatal("Remove(d) = false")
	}
	items := tr.Items()
	for _, root := range items {
		if len(root.Children) != 0 {
			t.Errorf("root %q children = %+v, want none", root.ID, root.Children)
		}
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
}

func TestItemsSharesNoMemory(t *testing.T) {
	tr := buildForest(t)

	items := tr.Items()
	items[0].Name = "mutated"
	items[0].Children[0].Title = "mutated"

	if tr.Find("f1").Name == "mutated" {
		t.Error("Items result aliases tree node")
	}
}

func TestWalkPreOrder(t *testing.T) {
	tr := buildForest(t)

	var order []string
	tr.Walk(func(it *Item) bool {
		order = append(order, it.ID)
		return true
	})
	want := []string{"f1", "f2", "n3", "n2", "n1"}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}
}
