package slackfs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"
)

// SlotAccessor is the raw slack-space facility the store runs on. One slot is
// the slack region of one host file, addressed by path.
//
// Implementations never touch a file's visible contents. Errors other than
// ErrNotFound are reported to callers as accessor failures and never retried.
type SlotAccessor interface {
	// Enumerate lists regular files under roots whose last modification is
	// at least minIdleDays old. Zero lists every file.
	Enumerate(roots []string, minIdleDays int) ([]string, error)

	// Metadata returns the slot's stable identifier and last-modification
	// time in epoch seconds. It fails with ErrNotFound if the file vanished.
	Metadata(path string) (id string, lastModified int64, err error)

	// Capacity returns the size of the slot's slack region in bytes, 0 if none.
	Capacity(path string) (int, error)

	// Read returns the slot's current slack content.
	Read(path string) ([]byte, error)

	// Write stores fragment at the start of the slot's slack region.
	Write(path string, fragment []byte) error

	// Wipe clears the slot's slack region.
	Wipe(path string) error
}

const day = 24 * time.Hour

// fileScanner walks an absfs filesystem the way `find <roots> -type f
// -mtime +N` does: regular files only, symlinks not followed, unreadable
// directories skipped.
type fileScanner struct {
	fs  absfs.FileSystem
	now func() time.Time
	log logrus.FieldLogger
}

// AccessorOption configures the host-file scanning of an accessor
type AccessorOption func(*fileScanner)

// WithClock replaces the clock used by the idle-days filter
func WithClock(now func() time.Time) AccessorOption {
	return func(s *fileScanner) {
		s.now = now
	}
}

// WithAccessorLogger sets the logger for skipped directories and roots
func WithAccessorLogger(log logrus.FieldLogger) AccessorOption {
	return func(s *fileScanner) {
		s.log = log
	}
}

func newFileScanner(fsys absfs.FileSystem) fileScanner {
	return fileScanner{
		fs:  fsys,
		now: time.Now,
		log: logrus.StandardLogger(),
	}
}

func (s *fileScanner) enumerate(roots []string, minIdleDays int) ([]string, error) {
	if minIdleDays < 0 {
		return nil, NewValidationError("min_idle_days", minIdleDays, "cannot be negative")
	}
	cutoff := s.now().Add(-time.Duration(minIdleDays) * day)

	var files []string
	keep := func(name string, info os.FileInfo) {
		if !info.Mode().IsRegular() {
			return
		}
		if minIdleDays > 0 && info.ModTime().After(cutoff) {
			return
		}
		files = append(files, name)
	}

	var walk func(dir string)
	walk = func(dir string) {
		f, err := s.fs.Open(dir)
		if err != nil {
			s.log.WithField("dir", dir).Debugf("skipping unreadable directory: %v", err)
			return
		}
		entries, err := f.Readdir(-1)
		f.Close()
		if err != nil {
			s.log.WithField("dir", dir).Debugf("skipping unreadable directory: %v", err)
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if entry.Name() == "." || entry.Name() == ".." {
				continue
			}
			name := path.Join(dir, entry.Name())
			if entry.IsDir() {
				walk(name)
				continue
			}
			keep(name, entry)
		}
	}

	for _, root := range roots {
		info, err := s.fs.Stat(root)
		if err != nil {
			s.log.WithField("root", root).Debugf("skipping missing candidate root: %v", err)
			continue
		}
		if info.IsDir() {
			walk(root)
			continue
		}
		keep(root, info)
	}
	return files, nil
}

func (s *fileScanner) stat(name string) (os.FileInfo, error) {
	info, err := s.fs.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, &AccessorError{Operation: "stat", Path: name, Err: ErrNotFound}
		}
		return nil, NewAccessorError("stat", name, err)
	}
	return info, nil
}

// idAllocator hands out stable identifiers for files whose filesystem does
// not expose inode numbers.
type idAllocator struct {
	mu   sync.Mutex
	next uint64
	ids  map[string]string
}

func (a *idAllocator) idFor(name string, info os.FileInfo) string {
	if ino, ok := inodeOf(info); ok {
		return strconv.FormatUint(ino, 10)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ids == nil {
		a.ids = make(map[string]string)
	}
	if id, ok := a.ids[name]; ok {
		return id
	}
	a.next++
	id := strconv.FormatUint(a.next, 10)
	a.ids[name] = id
	return id
}

func (s *fileScanner) metadata(ids *idAllocator, name string) (string, int64, error) {
	info, err := s.stat(name)
	if err != nil {
		return "", 0, err
	}
	return ids.idFor(name, info), info.ModTime().Unix(), nil
}
