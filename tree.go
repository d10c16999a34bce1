package slackfs

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeKind tags a tree node as a directory or a file
type NodeKind uint8

const (
	KindDir NodeKind = iota
	KindFile
)

func (k NodeKind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Node is one entry of the hidden filesystem. Directories carry Children,
// files carry Content.
type Node struct {
	Kind     NodeKind         `cbor:"k"`
	ID       uuid.UUID        `cbor:"id"`
	ModTime  int64            `cbor:"mt"`
	Children map[string]*Node `cbor:"c,omitempty"`
	Content  []byte           `cbor:"d,omitempty"`
}

// IsDir reports whether n is a directory
func (n *Node) IsDir() bool {
	return n.Kind == KindDir
}

// Size is the content length of a file, the number of entries of a directory
func (n *Node) Size() int {
	if n.IsDir() {
		return len(n.Children)
	}
	return len(n.Content)
}

// Entry describes a node without exposing it
type Entry struct {
	Name    string
	ID      uuid.UUID
	IsDir   bool
	Size    int
	ModTime time.Time
}

func (n *Node) entry(name string) Entry {
	return Entry{
		Name:    name,
		ID:      n.ID,
		IsDir:   n.IsDir(),
		Size:    n.Size(),
		ModTime: time.Unix(n.ModTime, 0),
	}
}

// Tree is the nested directory structure persisted by Store.SaveTree.
// It is not safe for concurrent use.
type Tree struct {
	Root *Node
	now  func() time.Time
}

// NewTree returns a tree holding only an empty root directory
func NewTree() *Tree {
	t := &Tree{now: time.Now}
	t.Root = t.newNode(KindDir)
	return t
}

func treeFromRoot(root *Node) *Tree {
	t := &Tree{Root: root, now: time.Now}
	if t.Root == nil {
		t.Root = t.newNode(KindDir)
	}
	normalize(t.Root)
	return t
}

// checkNode verifies a decoded subtree: every entry is present and tagged
// as a directory or a file.
func checkNode(name string, n *Node) error {
	if n == nil {
		return fmt.Errorf("%s: missing node", name)
	}
	switch n.Kind {
	case KindFile:
		return nil
	case KindDir:
	default:
		return fmt.Errorf("%s: unknown node kind %d", name, n.Kind)
	}
	for child, c := range n.Children {
		if child == "" || strings.Contains(child, "/") {
			return fmt.Errorf("%s: invalid entry name %q", name, child)
		}
		if err := checkNode(path.Join(name, child), c); err != nil {
			return err
		}
	}
	return nil
}

// normalize restores the empty child maps dropped by serialization
func normalize(n *Node) {
	if n == nil {
		return
	}
	if !n.IsDir() {
		return
	}
	if n.Children == nil {
		n.Children = make(map[string]*Node)
	}
	for _, child := range n.Children {
		normalize(child)
	}
}

func (t *Tree) newNode(kind NodeKind) *Node {
	n := &Node{Kind: kind, ID: uuid.New(), ModTime: t.now().Unix()}
	if kind == KindDir {
		n.Children = make(map[string]*Node)
	}
	return n
}

// splitPath cleans name into its components, "/" yielding none
func splitPath(name string) []string {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return nil
	}
	return strings.Split(clean[1:], "/")
}

func (t *Tree) lookup(op, name string) (*Node, error) {
	n := t.Root
	for _, part := range splitPath(name) {
		if !n.IsDir() {
			return nil, &fs.PathError{Op: op, Path: name, Err: ErrNotDir}
		}
		child, ok := n.Children[part]
		if !ok {
			return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
		}
		n = child
	}
	return n, nil
}

// parent resolves the directory holding name and the base name within it
func (t *Tree) parent(op, name string) (*Node, string, error) {
	parts := splitPath(name)
	if len(parts) == 0 {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	dir, err := t.lookup(op, strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: err.(*fs.PathError).Err}
	}
	if !dir.IsDir() {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: ErrNotDir}
	}
	return dir, parts[len(parts)-1], nil
}

func (t *Tree) touch(n *Node) {
	n.ModTime = t.now().Unix()
}

// Mkdir creates a directory. The parent must exist.
func (t *Tree) Mkdir(name string) error {
	dir, base, err := t.parent("mkdir", name)
	if err != nil {
		return err
	}
	if _, ok := dir.Children[base]; ok {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	dir.Children[base] = t.newNode(KindDir)
	t.touch(dir)
	return nil
}

// MkdirAll creates a directory along with any missing parents
func (t *Tree) MkdirAll(name string) error {
	n := t.Root
	for _, part := range splitPath(name) {
		child, ok := n.Children[part]
		if !ok {
			child = t.newNode(KindDir)
			n.Children[part] = child
			t.touch(n)
		} else if !child.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: name, Err: ErrNotDir}
		}
		n = child
	}
	return nil
}

// Rmdir removes an empty directory
func (t *Tree) Rmdir(name string) error {
	dir, base, err := t.parent("rmdir", name)
	if err != nil {
		return err
	}
	n, ok := dir.Children[base]
	switch {
	case !ok:
		return &fs.PathError{Op: "rmdir", Path: name, Err: fs.ErrNotExist}
	case !n.IsDir():
		return &fs.PathError{Op: "rmdir", Path: name, Err: ErrNotDir}
	case len(n.Children) > 0:
		return &fs.PathError{Op: "rmdir", Path: name, Err: ErrNotEmpty}
	}
	delete(dir.Children, base)
	t.touch(dir)
	return nil
}

// WriteFile creates a file holding data. Existing entries are never
// overwritten.
func (t *Tree) WriteFile(name string, data []byte) error {
	dir, base, err := t.parent("write", name)
	if err != nil {
		return err
	}
	if _, ok := dir.Children[base]; ok {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrExist}
	}
	n := t.newNode(KindFile)
	n.Content = append([]byte(nil), data...)
	dir.Children[base] = n
	t.touch(dir)
	return nil
}

// ReadFile returns a copy of a file's content
func (t *Tree) ReadFile(name string) ([]byte, error) {
	n, err := t.lookup("read", name)
	if err != nil {
		return nil, err
	}
	if n.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: ErrIsDir}
	}
	return append([]byte(nil), n.Content...), nil
}

// Remove deletes a file. Directories go through Rmdir.
func (t *Tree) Remove(name string) error {
	dir, base, err := t.parent("remove", name)
	if err != nil {
		return err
	}
	n, ok := dir.Children[base]
	if !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	if n.IsDir() {
		return &fs.PathError{Op: "remove", Path: name, Err: ErrIsDir}
	}
	delete(dir.Children, base)
	t.touch(dir)
	return nil
}

// Stat describes the node at name
func (t *Tree) Stat(name string) (Entry, error) {
	n, err := t.lookup("stat", name)
	if err != nil {
		return Entry{}, err
	}
	parts := splitPath(name)
	base := "/"
	if len(parts) > 0 {
		base = parts[len(parts)-1]
	}
	return n.entry(base), nil
}

// List returns the entries of a directory sorted by name
func (t *Tree) List(name string) ([]Entry, error) {
	n, err := t.lookup("list", name)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, &fs.PathError{Op: "list", Path: name, Err: ErrNotDir}
	}
	entries := make([]Entry, 0, len(n.Children))
	for childName, child := range n.Children {
		entries = append(entries, child.entry(childName))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// WalkFunc is called for every node visited by Walk
type WalkFunc func(name string, n *Node) error

// Walk visits the subtree at name depth first, parents before children and
// siblings in name order. Returning fs.SkipDir from fn skips a directory's
// children.
func (t *Tree) Walk(name string, fn WalkFunc) error {
	n, err := t.lookup("walk", name)
	if err != nil {
		return err
	}
	return walkNode(path.Clean("/"+name), n, fn)
}

func walkNode(name string, n *Node, fn WalkFunc) error {
	if err := fn(name, n); err != nil {
		if err == fs.SkipDir {
			return nil
		}
		return err
	}
	if !n.IsDir() {
		return nil
	}
	names := make([]string, 0, len(n.Children))
	for childName := range n.Children {
		names = append(names, childName)
	}
	sort.Strings(names)
	for _, childName := range names {
		if err := walkNode(path.Join(name, childName), n.Children[childName], fn); err != nil {
			return err
		}
	}
	return nil
}
