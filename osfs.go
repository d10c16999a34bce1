package slackfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/absfs/absfs"
)

// OSFileSystem exposes the host filesystem below root as an
// absfs.FileSystem. Paths use forward slashes and are resolved against root.
type OSFileSystem struct {
	root string
	cwd  string
}

// NewOSFileSystem returns a filesystem rooted at root, "/" when empty
func NewOSFileSystem(root string) *OSFileSystem {
	if root == "" {
		root = "/"
	}
	return &OSFileSystem{root: root, cwd: "/"}
}

var _ absfs.FileSystem = (*OSFileSystem)(nil)

func (o *OSFileSystem) native(name string) string {
	if !filepath.IsAbs(filepath.FromSlash(name)) {
		name = o.cwd + "/" + name
	}
	return filepath.Join(o.root, filepath.FromSlash(name))
}

func (o *OSFileSystem) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := os.OpenFile(o.native(name), flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (o *OSFileSystem) Open(name string) (absfs.File, error) {
	return o.OpenFile(name, os.O_RDONLY, 0)
}

func (o *OSFileSystem) Create(name string) (absfs.File, error) {
	return o.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (o *OSFileSystem) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(o.native(name), perm)
}

func (o *OSFileSystem) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(o.native(name), perm)
}

func (o *OSFileSystem) Remove(name string) error {
	return os.Remove(o.native(name))
}

func (o *OSFileSystem) RemoveAll(name string) error {
	return os.RemoveAll(o.native(name))
}

func (o *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(o.native(oldpath), o.native(newpath))
}

func (o *OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(o.native(name))
}

func (o *OSFileSystem) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(o.native(name), mode)
}

func (o *OSFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(o.native(name), atime, mtime)
}

func (o *OSFileSystem) Chown(name string, uid, gid int) error {
	return os.Chown(o.native(name), uid, gid)
}

func (o *OSFileSystem) Truncate(name string, size int64) error {
	return os.Truncate(o.native(name), size)
}

func (o *OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(o.native(name))
}

func (o *OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(o.native(name))
}

func (o *OSFileSystem) Sub(dir string) (fs.FS, error) {
	return os.DirFS(o.native(dir)), nil
}

func (o *OSFileSystem) Separator() uint8 {
	return '/'
}

func (o *OSFileSystem) ListSeparator() uint8 {
	return ':'
}

func (o *OSFileSystem) Chdir(dir string) error {
	info, err := o.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "chdir", Path: dir, Err: ErrNotDir}
	}
	if dir == "" || dir[0] != '/' {
		dir = o.cwd + "/" + dir
	}
	o.cwd = filepath.ToSlash(filepath.Clean(dir))
	return nil
}

func (o *OSFileSystem) Getwd() (string, error) {
	return o.cwd, nil
}

func (o *OSFileSystem) TempDir() string {
	return os.TempDir()
}
