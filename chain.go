package slackfs

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// ChainStore splits a byte stream across slots as a singly linked chain of
// fragments starting at a root slot, and joins it back.
//
// Payloads are binary-safe as far as the accessor is. BmapAccessor trims
// trailing NUL and newline bytes on read, so raw binary streams should go
// through Pipeline rather than straight into a ChainStore over it.
type ChainStore struct {
	accessor SlotAccessor
	log      logrus.FieldLogger
}

// NewChainStore returns a chain store over accessor. A nil log uses the
// logrus standard logger.
func NewChainStore(accessor SlotAccessor, log logrus.FieldLogger) *ChainStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChainStore{
		accessor: accessor,
		log:      log.WithField("component", "chain"),
	}
}

// Link is one planned or traversed chain node
type Link struct {
	Path     string
	Fragment Fragment
}

// Plan lays stream out over root and the index's slots without writing
// anything. Only capacity is queried. Successors are taken in priority order,
// the root is never a successor and no slot appears twice.
func (c *ChainStore) Plan(stream []byte, root string, index *SlotIndex) ([]Link, error) {
	if index == nil {
		return nil, ErrNilIndex
	}
	if err := ValidateFilePath(root); err != nil {
		return nil, err
	}

	var (
		links     []Link
		remaining = stream
		current   = root
		cursor    = 0
		used      = map[string]bool{root: true}
	)
	for {
		capacity, err := c.accessor.Capacity(current)
		if err != nil {
			return nil, NewAccessorError("capacity", current, err)
		}
		if len(remaining) < capacity {
			return append(links, Link{Path: current, Fragment: Fragment{Payload: remaining}}), nil
		}

		next, ok := c.successor(index, &cursor, root, used)
		if !ok {
			return nil, &CapacityError{
				Slot:      current,
				Remaining: len(remaining),
				Message:   "no unused slot left",
			}
		}
		space := capacity - PointerOverhead(next.ID)
		if space <= 0 {
			return nil, &CapacityError{
				Slot:      current,
				Remaining: len(remaining),
				Message:   "slot too small to hold a pointer",
			}
		}
		links = append(links, Link{
			Path:     current,
			Fragment: Fragment{Pointer: next.ID, Payload: remaining[:space]},
		})
		remaining = remaining[space:]
		used[next.Path] = true
		current = next.Path
	}
}

func (c *ChainStore) successor(index *SlotIndex, cursor *int, root string, used map[string]bool) (Slot, bool) {
	for *cursor < len(index.slots) {
		s := index.slots[*cursor]
		*cursor++
		if s.Path == root || used[s.Path] {
			continue
		}
		// a pointer must resolve back to this very path
		if r, ok := index.Lookup(s.ID); !ok || r.Path != s.Path {
			continue
		}
		return s, true
	}
	return Slot{}, false
}

// Write stores stream as a chain starting at root. The whole chain is planned
// before any slot is touched, so an InsufficientCapacity error leaves every
// slot as it was. Each slot is read, wiped and written; a failed write puts the
// previous content back on a best-effort basis. A failure after the first slot
// leaves a partial chain behind and the store must be saved again.
func (c *ChainStore) Write(stream []byte, root string, index *SlotIndex) error {
	links, err := c.Plan(stream, root, index)
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := c.commit(link); err != nil {
			return err
		}
	}
	c.log.WithFields(logrus.Fields{
		"root":   root,
		"bytes":  len(stream),
		"length": len(links),
	}).Debug("chain written")
	return nil
}

func (c *ChainStore) commit(link Link) error {
	previous, err := c.accessor.Read(link.Path)
	if err != nil {
		return NewAccessorError("read", link.Path, err)
	}
	if err := c.accessor.Wipe(link.Path); err != nil {
		return NewAccessorError("wipe", link.Path, err)
	}
	if err := c.accessor.Write(link.Path, link.Fragment.Encode()); err != nil {
		if len(previous) > 0 {
			if rerr := c.accessor.Write(link.Path, previous); rerr != nil {
				c.log.WithField("path", link.Path).Warnf("could not restore slot: %v", rerr)
			}
		}
		return NewAccessorError("write", link.Path, err)
	}
	c.log.WithFields(logrus.Fields{
		"path":    link.Path,
		"pointer": link.Fragment.Pointer,
		"size":    link.Fragment.Size(),
	}).Debug("slot written")
	return nil
}

// Trace follows the chain from root and returns its links in order
func (c *ChainStore) Trace(root string, index *SlotIndex) ([]Link, error) {
	if index == nil {
		return nil, ErrNilIndex
	}
	var (
		links   []Link
		path    = root
		visited = make(map[string]bool)
	)
	for {
		if visited[path] {
			return nil, &ChainError{Slot: path, Message: "chain revisits slot"}
		}
		visited[path] = true

		data, err := c.accessor.Read(path)
		if err != nil {
			return nil, NewAccessorError("read", path, err)
		}
		frag, err := ParseFragment(data)
		if err != nil {
			return nil, &ChainError{Slot: path, Message: err.Error()}
		}
		links = append(links, Link{Path: path, Fragment: frag})
		if frag.Terminal() {
			return links, nil
		}
		next, ok := index.Lookup(frag.Pointer)
		if !ok {
			return nil, &ChainError{Slot: path, Pointer: frag.Pointer, Message: "pointer not in index"}
		}
		path = next.Path
	}
}

// Read joins the payloads of the chain starting at root
func (c *ChainStore) Read(root string, index *SlotIndex) ([]byte, error) {
	links, err := c.Trace(root, index)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, link := range links {
		buf.Write(link.Fragment.Payload)
	}
	c.log.WithFields(logrus.Fields{
		"root":   root,
		"bytes":  buf.Len(),
		"length": len(links),
	}).Debug("chain read")
	return buf.Bytes(), nil
}
