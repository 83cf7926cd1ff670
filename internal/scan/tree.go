package scan

import (
	"sort"
	"strings"
)

// Entry is one surviving file or directory.
type Entry struct {
	Path  string // Relative to the scan root, '/'-separated.
	IsDir bool
	Depth int // Number of separators in Path.
}

// Node is an element of the tree arena. Parent and Children are indices into
// Tree.Nodes.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Depth    int
	Parent   int
	Children []int
}

// Tree holds every scanned node. Nodes[0] is the scan root itself (Depth -1,
// empty Path); its children are the top-level entries.
type Tree struct {
	Nodes []Node
}

// RootIndex is the index of the scan root in Tree.Nodes.
const RootIndex = 0

func newTree() *Tree {
	return &Tree{Nodes: []Node{{Depth: -1, Parent: -1, IsDir: true}}}
}

// NewTree builds an arena from a flat entry list. Entries whose parent
// directory is not in the list are dropped.
func NewTree(entries []Entry) *Tree {
	sorted := append([]Entry(nil), entries...)
	SortEntries(sorted)

	t := newTree()
	dirs := map[string]int{"": RootIndex}
	for _, e := range sorted {
		parentPath, name := splitParent(e.Path)
		parent, ok := dirs[parentPath]
		if !ok {
			continue
		}
		idx := t.add(parent, name, e.Path, e.IsDir)
		if e.IsDir {
			dirs[e.Path] = idx
		}
	}
	return t
}

func splitParent(path string) (string, string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func (t *Tree) add(parent int, name, path string, isDir bool) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Name:   name,
		Path:   path,
		IsDir:  isDir,
		Depth:  t.Nodes[parent].Depth + 1,
		Parent: parent,
	})
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	return idx
}

// sortChildren orders every child list by name, which is the hierarchical
// path order restricted to siblings.
func (t *Tree) sortChildren() {
	for i := range t.Nodes {
		children := t.Nodes[i].Children
		sort.SliceStable(children, func(a, b int) bool {
			return t.Nodes[children[a]].Name < t.Nodes[children[b]].Name
		})
	}
}

// Len returns the number of entries, excluding the root.
func (t *Tree) Len() int {
	return len(t.Nodes) - 1
}

// Children returns the child indices of node i.
func (t *Tree) Children(i int) []int {
	return t.Nodes[i].Children
}

// Entries returns the entries in canonical order: a pre-order walk, which
// places every directory immediately before its descendants.
func (t *Tree) Entries() []Entry {
	out := make([]Entry, 0, t.Len())
	var visit func(i int)
	visit = func(i int) {
		for _, c := range t.Nodes[i].Children {
			n := &t.Nodes[c]
			out = append(out, Entry{Path: n.Path, IsDir: n.IsDir, Depth: n.Depth})
			visit(c)
		}
	}
	visit(RootIndex)
	return out
}

// Files returns the non-directory entries in canonical order.
func (t *Tree) Files() []Entry {
	var files []Entry
	for _, e := range t.Entries() {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files
}

// ComparePaths compares two relative paths component by component, so a
// parent always sorts before its descendants and siblings stay grouped.
func ComparePaths(a, b string) int {
	ac := strings.Split(a, "/")
	bc := strings.Split(b, "/")
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if c := strings.Compare(ac[i], bc[i]); c != 0 {
			return c
		}
	}
	return len(ac) - len(bc)
}

// SortEntries sorts entries in place with ComparePaths.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return ComparePaths(entries[i].Path, entries[j].Path) < 0
	})
}
