package slackfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/absfs/absfs"
)

// ImportFrom copies the file or directory src of fsys into the tree at dst.
// Directories are copied recursively; existing tree entries are never
// overwritten.
func (t *Tree) ImportFrom(fsys absfs.FileSystem, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := readHostFile(fsys, src)
		if err != nil {
			return err
		}
		return t.WriteFile(dst, data)
	}

	if err := t.MkdirAll(dst); err != nil {
		return err
	}
	f, err := fsys.Open(src)
	if err != nil {
		return err
	}
	entries, err := f.Readdir(-1)
	f.Close()
	if err != nil {
		return fmt.Errorf("read dir %s: %w", src, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		if !entry.IsDir() && !entry.Mode().IsRegular() {
			continue
		}
		if err := t.ImportFrom(fsys, path.Join(src, entry.Name()), path.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func readHostFile(fsys absfs.FileSystem, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ExportTo copies the tree entry src into fsys at dst. Files already present
// on fsys are replaced; modification times are carried over.
func (t *Tree) ExportTo(fsys absfs.FileSystem, src, dst string) error {
	root := path.Clean("/" + src)
	return t.Walk(src, func(name string, n *Node) error {
		target := dst
		if rel := strings.TrimPrefix(strings.TrimPrefix(name, root), "/"); rel != "" {
			target = path.Join(dst, rel)
		}
		if n.IsDir() {
			if err := fsys.MkdirAll(target, 0o755); err != nil {
				return err
			}
		} else if err := writeHostFile(fsys, target, n.Content); err != nil {
			return err
		}
		mtime := time.Unix(n.ModTime, 0)
		if err := fsys.Chtimes(target, mtime, mtime); err != nil && !os.IsNotExist(err) {
			return &fs.PathError{Op: "chtimes", Path: target, Err: err}
		}
		return nil
	})
}

func writeHostFile(fsys absfs.FileSystem, name string, data []byte) error {
	f, err := fsys.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
