package vision

import (
	"image"
	"sync/atomic"
	"time"
)

// Snapshot is one processed frame and the marker position found in it.
// Snapshots are immutable once published; readers must not modify Frame.
type Snapshot struct {
	Seq      uint64
	Captured time.Time
	Frame    image.Image
	Position Position
}

// Slot is a single-value latest-wins handoff between the capture worker
// and the control loop. Publish never blocks; an unread snapshot is
// replaced and counted as dropped.
type Slot struct {
	cur     atomic.Pointer[Snapshot]
	seq     atomic.Uint64
	read    atomic.Uint64
	dropped atomic.Uint64
}

// Publish stores s, assigning its sequence number, and reports whether an
// unread snapshot was overwritten.
func (s *Slot) Publish(snap Snapshot) (seq uint64, dropped bool) {
	snap.Seq = s.seq.Add(1)
	prev := s.cur.Swap(&snap)
	if prev != nil && prev.Seq > s.read.Load() {
		s.dropped.Add(1)
		dropped = true
	}
	return snap.Seq, dropped
}

// Latest returns the most recent snapshot. ok is false until the first
// Publish.
func (s *Slot) Latest() (snap Snapshot, ok bool) {
	p := s.cur.Load()
	if p == nil {
		return Snapshot{}, false
	}
	for {
		r := s.read.Load()
		if r >= p.Seq || s.read.CompareAndSwap(r, p.Seq) {
			break
		}
	}
	return *p, true
}

// Dropped returns how many snapshots were overwritten unread.
func (s *Slot) Dropped() uint64 { return s.dropped.Load() }
