package slackfs

import (
	"fmt"
	"sync"

	"github.com/absfs/absfs"
)

// DefaultBlockSize is the allocation unit EmulatedAccessor assumes when none
// is configured.
const DefaultBlockSize = 4096

// EmulatedAccessor emulates slack space over any absfs.FileSystem. A file's
// slack is the unused tail of its last allocated block; its content lives in
// memory for the lifetime of the accessor.
//
// It never modifies the underlying filesystem, which makes it suitable for
// tests and dry runs against memfs or a read-only host tree.
type EmulatedAccessor struct {
	scanner   fileScanner
	ids       idAllocator
	blockSize int

	mu    sync.Mutex
	slack map[string][]byte
}

// NewEmulatedAccessor returns an accessor over fsys. A blockSize of 0 uses
// DefaultBlockSize.
func NewEmulatedAccessor(fsys absfs.FileSystem, blockSize int, opts ...AccessorOption) *EmulatedAccessor {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	a := &EmulatedAccessor{
		scanner:   newFileScanner(fsys),
		blockSize: blockSize,
		slack:     make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(&a.scanner)
	}
	return a
}

// BlockSize returns the block size used to compute capacity
func (a *EmulatedAccessor) BlockSize() int {
	return a.blockSize
}

func (a *EmulatedAccessor) Enumerate(roots []string, minIdleDays int) ([]string, error) {
	return a.scanner.enumerate(roots, minIdleDays)
}

func (a *EmulatedAccessor) Metadata(path string) (string, int64, error) {
	return a.scanner.metadata(&a.ids, path)
}

func (a *EmulatedAccessor) Capacity(path string) (int, error) {
	info, err := a.scanner.stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, nil
	}
	tail := int(info.Size() % int64(a.blockSize))
	if tail == 0 {
		return 0, nil
	}
	return a.blockSize - tail, nil
}

func (a *EmulatedAccessor) Read(path string) ([]byte, error) {
	if _, err := a.scanner.stat(path); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.slack[path]...), nil
}

func (a *EmulatedAccessor) Write(path string, fragment []byte) error {
	capacity, err := a.Capacity(path)
	if err != nil {
		return err
	}
	if len(fragment) > capacity {
		return &AccessorError{
			Operation: "write",
			Path:      path,
			Err:       fmt.Errorf("fragment of %d bytes exceeds %d bytes of slack", len(fragment), capacity),
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slack[path] = append([]byte(nil), fragment...)
	return nil
}

func (a *EmulatedAccessor) Wipe(path string) error {
	if _, err := a.scanner.stat(path); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.slack, path)
	return nil
}
