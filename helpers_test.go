package slackfs

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// fakeSlot is one host file as seen by fakeAccessor
type fakeSlot struct {
	id       string
	mtime    int64
	capacity int
	content  []byte
}

// fakeAccessor is an in-memory SlotAccessor with failure injection
type fakeAccessor struct {
	slots    map[string]*fakeSlot
	order    []string
	vanished map[string]bool
	failOnce map[string]error
	enumErr  error

	writes []string
	wipes  []string
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{
		slots:    make(map[string]*fakeSlot),
		vanished: make(map[string]bool),
		failOnce: make(map[string]error),
	}
}

func (f *fakeAccessor) add(path, id string, mtime int64, capacity int) *fakeAccessor {
	f.slots[path] = &fakeSlot{id: id, mtime: mtime, capacity: capacity}
	f.order = append(f.order, path)
	return f
}

func (f *fakeAccessor) set(path string, content string) {
	f.slots[path].content = []byte(content)
}

func (f *fakeAccessor) content(path string) string {
	return string(f.slots[path].content)
}

func (f *fakeAccessor) snapshot() map[string]string {
	out := make(map[string]string, len(f.slots))
	for path, s := range f.slots {
		out[path] = string(s.content)
	}
	return out
}

func (f *fakeAccessor) slot(path string) (*fakeSlot, error) {
	s, ok := f.slots[path]
	if !ok || f.vanished[path] {
		return nil, &AccessorError{Operation: "stat", Path: path, Err: ErrNotFound}
	}
	return s, nil
}

func (f *fakeAccessor) Enumerate(roots []string, minIdleDays int) ([]string, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeAccessor) Metadata(path string) (string, int64, error) {
	s, err := f.slot(path)
	if err != nil {
		return "", 0, err
	}
	return s.id, s.mtime, nil
}

func (f *fakeAccessor) Capacity(path string) (int, error) {
	s, err := f.slot(path)
	if err != nil {
		return 0, err
	}
	return s.capacity, nil
}

func (f *fakeAccessor) Read(path string) ([]byte, error) {
	s, err := f.slot(path)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), s.content...), nil
}

func (f *fakeAccessor) Write(path string, fragment []byte) error {
	s, err := f.slot(path)
	if err != nil {
		return err
	}
	if err, ok := f.failOnce[path]; ok {
		delete(f.failOnce, path)
		return err
	}
	if len(fragment) > s.capacity {
		return fmt.Errorf("fragment of %d bytes exceeds capacity %d", len(fragment), s.capacity)
	}
	f.writes = append(f.writes, path)
	s.content = append([]byte(nil), fragment...)
	return nil
}

func (f *fakeAccessor) Wipe(path string) error {
	s, err := f.slot(path)
	if err != nil {
		return err
	}
	f.wipes = append(f.wipes, path)
	s.content = nil
	return nil
}

// abcAccessor is the three-slot pool A(50) B(30) C(20), all equally idle
func abcAccessor() *fakeAccessor {
	return newFakeAccessor().
		add("/a", "101", 1000, 50).
		add("/b", "102", 1000, 30).
		add("/c", "103", 1000, 20)
}

func mustIndex(t testing.TB, accessor SlotAccessor) *SlotIndex {
	t.Helper()
	index, err := BuildIndex(accessor, []string{"/"}, 0)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	return index
}

// newHostFS creates a memfs holding files of the given sizes
func newHostFS(t testing.TB, sizes map[string]int) absfs.FileSystem {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("Failed to create base filesystem: %v", err)
	}
	for name, size := range sizes {
		dir := name[:strings.LastIndex(name, "/")]
		if dir != "" {
			if err := fs.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
		f, err := fs.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(strings.Repeat("x", size))); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close %s: %v", name, err)
		}
	}
	return fs
}

func setMtime(t testing.TB, fs absfs.FileSystem, name string, mtime time.Time) {
	t.Helper()
	if err := fs.Chtimes(name, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

// fastCodecConfig keeps key derivation cheap in tests
func fastCodecConfig() CodecConfig {
	cfg := DefaultCodecConfig()
	cfg.Argon2id.Memory = 8 * 1024
	cfg.Argon2id.Iterations = 1
	cfg.Argon2id.Parallelism = 1
	return cfg
}
