package slackfs

import (
	"bytes"
	"errors"
)

// FragmentSeparator splits a fragment's pointer from its payload. Only the
// first occurrence counts; the payload may contain more.
const FragmentSeparator = ':'

// errMissingSeparator is returned by ParseFragment for slot content that
// holds no separator at all (a wiped or foreign slot).
var errMissingSeparator = errors.New("fragment has no separator")

// Fragment is the unit stored in one slot's slack region:
//
//	<pointer>:<payload>
//
// Pointer is the identifier of the next slot, empty on the terminal slot.
type Fragment struct {
	Pointer string
	Payload []byte
}

// Terminal reports whether the fragment ends its chain
func (f Fragment) Terminal() bool {
	return f.Pointer == ""
}

// Size returns the encoded size of the fragment in bytes
func (f Fragment) Size() int {
	return len(f.Pointer) + 1 + len(f.Payload)
}

// Encode returns the on-disk form of the fragment
func (f Fragment) Encode() []byte {
	out := make([]byte, 0, f.Size())
	out = append(out, f.Pointer...)
	out = append(out, FragmentSeparator)
	return append(out, f.Payload...)
}

// ParseFragment splits slot content on its first separator
func ParseFragment(data []byte) (Fragment, error) {
	i := bytes.IndexByte(data, FragmentSeparator)
	if i < 0 {
		return Fragment{}, errMissingSeparator
	}
	return Fragment{
		Pointer: string(data[:i]),
		Payload: append([]byte(nil), data[i+1:]...),
	}, nil
}

// PointerOverhead is the number of bytes a non-terminal fragment spends on
// pointing at the slot identified by id.
func PointerOverhead(id string) int {
	return len(id) + 1
}
