package slackfs

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// MinSlotCapacity is the smallest slack region worth indexing: anything
// smaller cannot hold a pointer and a useful payload.
const MinSlotCapacity = 10

// Slot is one indexed host file
type Slot struct {
	ID           string
	Path         string
	LastModified int64 // epoch seconds
	Capacity     int   // bytes of slack at index time
}

// SlotIndex maps slot identifiers to slots and ranks them for chain
// placement. It is a snapshot: nothing detects host files changing after the
// build, so callers rebuild it when the pool may have moved.
type SlotIndex struct {
	slots []Slot
	byID  map[string]int
	total int
}

// IndexOption configures BuildIndex
type IndexOption func(*indexOptions)

type indexOptions struct {
	log         logrus.FieldLogger
	minCapacity int
	parallel    ParallelConfig
}

// WithIndexLogger sets the logger used while scanning
func WithIndexLogger(log logrus.FieldLogger) IndexOption {
	return func(o *indexOptions) {
		o.log = log
	}
}

// WithMinCapacity overrides MinSlotCapacity
func WithMinCapacity(n int) IndexOption {
	return func(o *indexOptions) {
		o.minCapacity = n
	}
}

// WithParallel sets how candidate files are probed. Probing is sequential
// unless this option enables it.
func WithParallel(cfg ParallelConfig) IndexOption {
	return func(o *indexOptions) {
		o.parallel = cfg
	}
}

// BuildIndex scans roots through accessor and returns the ranked index.
//
// Files that vanish between enumeration and the metadata query are skipped.
// An empty result is a valid index with zero capacity.
func BuildIndex(accessor SlotAccessor, roots []string, minIdleDays int, opts ...IndexOption) (*SlotIndex, error) {
	if accessor == nil {
		return nil, ErrNilAccessor
	}
	o := indexOptions{log: logrus.StandardLogger(), minCapacity: MinSlotCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithField("component", "index")

	log.WithFields(logrus.Fields{
		"roots":    roots,
		"min_idle": minIdleDays,
	}).Info("indexing candidate files")

	paths, err := accessor.Enumerate(roots, minIdleDays)
	if err != nil {
		if IsValidationError(err) {
			return nil, err
		}
		return nil, NewAccessorError("enumerate", "", err)
	}

	slots := make([]Slot, 0, len(paths))
	for _, job := range probeAll(accessor, paths, o.minCapacity, o.parallel) {
		if job.err != nil {
			return nil, job.err
		}
		if job.skip != "" {
			log.WithField("path", job.path).Debug(job.skip)
			continue
		}
		slots = append(slots, job.slot)
	}

	idx := newSlotIndex(slots)
	log.WithFields(logrus.Fields{
		"files":    len(paths),
		"slots":    idx.Len(),
		"capacity": idx.total,
	}).Info("index built")
	return idx, nil
}

func newSlotIndex(slots []Slot) *SlotIndex {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].LastModified != slots[j].LastModified {
			return slots[i].LastModified < slots[j].LastModified
		}
		return slots[i].Capacity > slots[j].Capacity
	})

	idx := &SlotIndex{
		slots: slots,
		byID:  make(map[string]int, len(slots)),
	}
	for i, s := range slots {
		// a duplicate identifier (hard links) keeps its best-ranked slot
		if _, ok := idx.byID[s.ID]; !ok {
			idx.byID[s.ID] = i
		}
		idx.total += s.Capacity
	}
	return idx
}

// Slots returns the slots in priority order: least recently modified first,
// larger capacity first among equals.
func (x *SlotIndex) Slots() []Slot {
	return append([]Slot(nil), x.slots...)
}

// Lookup resolves a slot identifier
func (x *SlotIndex) Lookup(id string) (Slot, bool) {
	i, ok := x.byID[id]
	if !ok {
		return Slot{}, false
	}
	return x.slots[i], true
}

// Len returns the number of usable slots
func (x *SlotIndex) Len() int {
	return len(x.slots)
}

// TotalCapacity returns the summed slack of every indexed slot
func (x *SlotIndex) TotalCapacity() int {
	return x.total
}

// Summary renders the index size for humans, e.g. "1.2 MiB in 340 files"
func (x *SlotIndex) Summary() string {
	return fmt.Sprintf("%s in %d files", humanize.IBytes(uint64(x.total)), len(x.slots))
}
