package room

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCreate(t *testing.T) {
	r := NewRegistry()

	rm, err := r.Create("Lobby")
	require.NoError(t, err)
	assert.Equal(t, "Lobby", rm.Name)
	assert.Len(t, rm.Code, CodeLength)
	assert.Equal(t, 0, rm.Size)
}

func TestCreateCodeAlphabet(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 50; i++ {
		rm, err := r.Create("room")
		require.NoError(t, err)
		require.Len(t, rm.Code, CodeLength)
		for _, c := range rm.Code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c),
				"code %q contains %q outside A-Z0-9", rm.Code, c)
		}
	}
}

func TestCreateUniqueAmongLiveRooms(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		rm, err := r.Create("room")
		require.NoError(t, err)
		assert.False(t, seen[rm.Code], "live code %q drawn twice", rm.Code)
		seen[rm.Code] = true
	}
}

func TestListInsertionOrder(t *testing.T) {
	r := NewRegistry()

	first, err := r.Create("first")
	require.NoError(t, err)
	second, err := r.Create("second")
	require.NoError(t, err)
	third, err := r.Create("third")
	require.NoError(t, err)

	rooms := r.List()
	require.Len(t, rooms, 3)
	assert.Equal(t, first.Code, rooms[0].Code)
	assert.Equal(t, second.Code, rooms[1].Code)
	assert.Equal(t, third.Code, rooms[2].Code)
}

func TestJoin(t *testing.T) {
	r := NewRegistry()
	rm, err := r.Create("Lobby")
	require.NoError(t, err)

	require.NoError(t, r.Join(rm.Code))

	got, ok := r.Get(rm.Code)
	require.True(t, ok)
	assert.Equal(t, 1, got.Size)
}

func TestJoinUnknownCode(t *testing.T) {
	r := NewRegistry()
	err := r.Join("ZZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, r.Count())
}

func TestLeaveRemovesEmptyRoom(t *testing.T) {
	r := NewRegistry()
	rm, err := r.Create("Lobby")
	require.NoError(t, err)
	require.NoError(t, r.Join(rm.Code))

	r.Leave(rm.Code)

	_, ok := r.Get(rm.Code)
	assert.False(t, ok)
	assert.Empty(t, r.List())
}

func TestLeaveKeepsOccupiedRoom(t *testing.T) {
	r := NewRegistry()
	rm, err := r.Create("Lobby")
	require.NoError(t, err)
	require.NoError(t, r.Join(rm.Code))
	require.NoError(t, r.Join(rm.Code))

	r.Leave(rm.Code)

	got, ok := r.Get(rm.Code)
	require.True(t, ok)
	assert.Equal(t, 1, got.Size)
}

func TestLeaveIsIdempotentNoOp(t *testing.T) {
	r := NewRegistry()

	// Unset code and dead room are both silent no-ops.
	r.Leave("")
	r.Leave("ZZZZZZ")

	rm, err := r.Create("Lobby")
	require.NoError(t, err)
	require.NoError(t, r.Join(rm.Code))
	r.Leave(rm.Code)
	r.Leave(rm.Code)

	assert.Equal(t, 0, r.Count())
}

func TestJoinThenLeaveRestoresOccupancy(t *testing.T) {
	r := NewRegistry()
	rm, err := r.Create("Lobby")
	require.NoError(t, err)
	require.NoError(t, r.Join(rm.Code))

	before, ok := r.Get(rm.Code)
	require.True(t, ok)

	require.NoError(t, r.Join(rm.Code))
	r.Leave(rm.Code)

	after, ok := r.Get(rm.Code)
	require.True(t, ok)
	assert.Equal(t, before.Size, after.Size)
}

func TestConcurrentDoubleLeave(t *testing.T) {
	for i := 0; i < 100; i++ {
		r := NewRegistry()
		rm, err := r.Create("Lobby")
		require.NoError(t, err)
		require.NoError(t, r.Join(rm.Code))

		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Leave(rm.Code)
			}()
		}
		wg.Wait()

		assert.Equal(t, 0, r.Count())
	}
}

func TestOccupancyNeverNegativeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		var codes []string

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				rm, err := r.Create("room")
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				codes = append(codes, rm.Code)
			case 1:
				if len(codes) > 0 {
					code := rapid.SampledFrom(codes).Draw(t, "joinCode")
					_ = r.Join(code)
				}
			case 2:
				if len(codes) > 0 {
					code := rapid.SampledFrom(codes).Draw(t, "leaveCode")
					r.Leave(code)
				}
			}

			for _, rm := range r.List() {
				if rm.Size < 0 {
					t.Fatalf("room %q has negative size %d", rm.Code, rm.Size)
				}
				if rm.Size == 0 {
					// Freshly created rooms are the only size-0 listings;
					// a room a leave emptied must be gone.
					continue
				}
			}
		}
	})
}

func TestCodeShapeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		n := rapid.IntRange(1, 20).Draw(t, "rooms")
		for i := 0; i < n; i++ {
			rm, err := r.Create("room")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if len(rm.Code) != CodeLength {
				t.Fatalf("code %q has length %d", rm.Code, len(rm.Code))
			}
			for _, c := range rm.Code {
				if !strings.ContainsRune(codeAlphabet, c) {
					t.Fatalf("code %q outside alphabet", rm.Code)
				}
			}
		}
	})
}
