package slackfs

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestChainStore_ThreeSlotScenario(t *testing.T) {
	acc := abcAccessor()
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	stream := bytes.Repeat([]byte("0123456789"), 9)
	require.Len(t, stream, 90)

	require.NoError(t, chains.Write(stream, "/a", index))

	links, err := chains.Trace("/a", index)
	require.NoError(t, err)
	require.Len(t, links, 3)

	require.Equal(t, "/a", links[0].Path)
	require.Equal(t, "102", links[0].Fragment.Pointer)
	require.Len(t, links[0].Fragment.Payload, 46)

	require.Equal(t, "/b", links[1].Path)
	require.Equal(t, "103", links[1].Fragment.Pointer)
	require.Len(t, links[1].Fragment.Payload, 26)

	require.Equal(t, "/c", links[2].Path)
	require.True(t, links[2].Fragment.Terminal())
	require.Len(t, links[2].Fragment.Payload, 18)

	require.Equal(t, "102:"+string(stream[:46]), acc.content("/a"))
	require.Equal(t, ":"+string(stream[72:]), acc.content("/c"))

	got, err := chains.Read("/a", index)
	require.NoError(t, err)
	require.Equal(t, stream, got)
}

func TestChainStore_EmptyStream(t *testing.T) {
	acc := abcAccessor()
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	require.NoError(t, chains.Write(nil, "/a", index))
	require.Equal(t, ":", acc.content("/a"))
	require.Equal(t, []string{"/a"}, acc.writes)

	got, err := chains.Read("/a", index)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestChainStore_SingleSlot(t *testing.T) {
	acc := abcAccessor()
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	// 49 bytes fit the root's 50 with the separator
	stream := bytes.Repeat([]byte{'z'}, 49)
	require.NoError(t, chains.Write(stream, "/a", index))
	require.Equal(t, ":"+string(stream), acc.content("/a"))

	// 50 bytes do not and spill into the next slot
	acc = abcAccessor()
	chains = NewChainStore(acc, nil)
	stream = append(stream, 'z')
	require.NoError(t, chains.Write(stream, "/a", index))
	links, err := chains.Trace("/a", index)
	require.NoError(t, err)
	require.Len(t, links, 2)
}

func TestChainStore_ExhaustionLeavesSlotsUntouched(t *testing.T) {
	acc := abcAccessor()
	acc.set("/a", "old-a")
	acc.set("/b", "old-b")
	acc.set("/c", "old-c")
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	before := acc.snapshot()
	err := chains.Write(bytes.Repeat([]byte{'x'}, 200), "/a", index)

	require.Error(t, err)
	require.True(t, IsInsufficientCapacity(err))
	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "/c", ce.Slot)
	require.Equal(t, before, acc.snapshot())
	require.Empty(t, acc.writes)
	require.Empty(t, acc.wipes)
}

func TestChainStore_SlotTooSmallForPointer(t *testing.T) {
	acc := newFakeAccessor().
		add("/root", "1", 0, 3).
		add("/big", "123456789", 0, 12)
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	err := chains.Write([]byte("0123456789"), "/root", index)
	require.True(t, IsInsufficientCapacity(err))
	require.Empty(t, acc.writes)
}

func TestChainStore_RootIsNeverASuccessor(t *testing.T) {
	// the root ranks first, so a naive walk would pick it
	acc := newFakeAccessor().
		add("/root", "1", 1, 15).
		add("/x", "2", 2, 15).
		add("/y", "3", 3, 15)
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	require.NoError(t, chains.Write(bytes.Repeat([]byte{'q'}, 30), "/root", index))
	links, err := chains.Trace("/root", index)
	require.NoError(t, err)
	require.Len(t, links, 3)
	for _, link := range links[1:] {
		require.NotEqual(t, "/root", link.Path)
	}
}

func TestChainStore_RootOutsideIndex(t *testing.T) {
	acc := abcAccessor().add("/outside", "900", 1, 5)
	index, err := BuildIndex(acc, nil, 0, WithMinCapacity(10))
	require.NoError(t, err)
	_, indexed := index.Lookup("900")
	require.False(t, indexed)

	chains := NewChainStore(acc, nil)
	stream := []byte("more than five bytes")
	require.NoError(t, chains.Write(stream, "/outside", index))

	got, err := chains.Read("/outside", index)
	require.NoError(t, err)
	require.Equal(t, stream, got)
}

func TestChainStore_BrokenChain(t *testing.T) {
	t.Run("pointer missing from index", func(t *testing.T) {
		acc := abcAccessor()
		chains := NewChainStore(acc, nil)
		require.NoError(t, chains.Write(bytes.Repeat([]byte{'x'}, 90), "/a", mustIndex(t, acc)))

		stale := newSlotIndex([]Slot{{ID: "101", Path: "/a", Capacity: 50}})
		_, err := chains.Read("/a", stale)
		require.True(t, IsBrokenChain(err))
		var ce *ChainError
		require.True(t, errors.As(err, &ce))
		require.Equal(t, "102", ce.Pointer)
	})

	t.Run("missing separator", func(t *testing.T) {
		acc := abcAccessor()
		acc.set("/a", "no separator here")
		_, err := NewChainStore(acc, nil).Read("/a", mustIndex(t, acc))
		require.True(t, IsBrokenChain(err))
	})

	t.Run("wiped root", func(t *testing.T) {
		acc := abcAccessor()
		_, err := NewChainStore(acc, nil).Read("/a", mustIndex(t, acc))
		require.True(t, IsBrokenChain(err))
	})

	t.Run("revisited slot", func(t *testing.T) {
		acc := abcAccessor()
		acc.set("/a", "103:one")
		acc.set("/c", "101:two")
		_, err := NewChainStore(acc, nil).Read("/a", mustIndex(t, acc))
		require.True(t, IsBrokenChain(err))
	})
}

func TestChainStore_WriteFailureRestoresSlot(t *testing.T) {
	acc := abcAccessor()
	acc.set("/b", "previous")
	acc.failOnce["/b"] = errors.New("device busy")
	index := mustIndex(t, acc)

	err := NewChainStore(acc, nil).Write(bytes.Repeat([]byte{'x'}, 90), "/a", index)
	require.True(t, IsAccessorFailure(err))
	require.Equal(t, "previous", acc.content("/b"))
	require.Empty(t, acc.content("/c"))
}

func TestChainStore_BinaryPayload(t *testing.T) {
	acc := abcAccessor()
	index := mustIndex(t, acc)
	chains := NewChainStore(acc, nil)

	stream := []byte(":::\x00\n:102:")
	require.NoError(t, chains.Write(stream, "/a", index))
	got, err := chains.Read("/a", index)
	require.NoError(t, err)
	require.Equal(t, stream, got)
}

func TestChainStore_NilIndex(t *testing.T) {
	chains := NewChainStore(abcAccessor(), nil)
	require.ErrorIs(t, chains.Write([]byte("x"), "/a", nil), ErrNilIndex)
	_, err := chains.Read("/a", nil)
	require.ErrorIs(t, err, ErrNilIndex)
}

func TestChainStore_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "slots")
		acc := newFakeAccessor()
		for i := 0; i < n; i++ {
			path := fmt.Sprintf("/s%d", i)
			mtime := rapid.Int64Range(0, 3).Draw(t, "mtime")
			capacity := rapid.IntRange(0, 60).Draw(t, "capacity")
			acc.add(path, strconv.Itoa(100+i), mtime, capacity)
			acc.set(path, "seed")
		}
		index, err := BuildIndex(acc, nil, 0)
		require.NoError(t, err)

		root := "/s0"
		stream := rapid.SliceOfN(rapid.Byte(), 0, 300).Draw(t, "stream")
		chains := NewChainStore(acc, nil)
		before := acc.snapshot()

		err = chains.Write(stream, root, index)
		if err != nil {
			require.True(t, IsInsufficientCapacity(err), "unexpected error: %v", err)
			require.Equal(t, before, acc.snapshot())
			return
		}

		links, err := chains.Trace(root, index)
		require.NoError(t, err)
		seen := make(map[string]bool)
		for i, link := range links {
			require.False(t, seen[link.Path], "slot %s visited twice", link.Path)
			seen[link.Path] = true
			if i > 0 {
				require.NotEqual(t, root, link.Path)
			}
		}

		got, err := chains.Read(root, index)
		require.NoError(t, err)
		require.Equal(t, len(stream), len(got))
		if len(stream) > 0 {
			require.Equal(t, stream, got)
		}
	})
}
