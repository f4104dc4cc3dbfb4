package vision

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_LatestWins(t *testing.T) {
	var s Slot
	_, ok := s.Latest()
	assert.False(t, ok)

	seq, dropped := s.Publish(Snapshot{Position: Position{X: 1, Found: true}})
	assert.Equal(t, uint64(1), seq)
	assert.False(t, dropped)

	_, dropped = s.Publish(Snapshot{Position: Position{X: 2, Found: true}})
	assert.True(t, dropped, "first snapshot was never read")

	snap, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, 2, snap.Position.X)

	_, dropped = s.Publish(Snapshot{Position: Position{X: 3, Found: true}})
	assert.False(t, dropped, "second snapshot was read")
	assert.Equal(t, uint64(1), s.Dropped())

	a, _ := s.Latest()
	b, _ := s.Latest()
	assert.Equal(t, a, b, "reading does not consume")
}

func TestSlot_ConcurrentMonotonic(t *testing.T) {
	var s Slot
	const n = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.Publish(Snapshot{Position: Position{X: i, Found: true}})
		}
	}()

	var last uint64
	for last < n {
		snap, ok := s.Latest()
		if !ok {
			continue
		}
		if snap.Seq < last {
			t.Fatalf("sequence went backwards: %d after %d", snap.Seq, last)
		}
		assert.Equal(t, int(snap.Seq)-1, snap.Position.X)
		last = snap.Seq
	}
	wg.Wait()
	assert.Less(t, s.Dropped(), uint64(n))
}
