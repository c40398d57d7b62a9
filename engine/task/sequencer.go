package task

// Sequencer maintains the ring of logical-frame to physical-slot mappings for
// a buffered-frame count N. Index(0) is the slot for the frame currently being
// processed; Index(k) for k > 0 is the slot used k frames ago. The value N
// itself is the sentinel meaning "unset" or "no such historical frame".
type Sequencer struct {
	indices []uint32
	current uint32
}

// NewSequencer creates a sequencer for the given buffered-frame count.
// All indices start at the sentinel until Advance is first called.
//
// Parameters:
//   - bufferedFrames: the frames-in-flight depth N (must be > 0)
//
// Returns:
//   - *Sequencer: the new sequencer
func NewSequencer(bufferedFrames uint32) *Sequencer {
	if bufferedFrames == 0 {
		panic("task: NewSequencer requires bufferedFrames > 0")
	}
	s := &Sequencer{
		indices: make([]uint32, bufferedFrames),
		current: bufferedFrames, // sentinel until the first Advance
	}
	for i := range s.indices {
		s.indices[i] = bufferedFrames
	}
	return s
}

// Len returns the buffered-frame count N.
//
// Returns:
//   - uint32: the ring length
func (s *Sequencer) Len() uint32 {
	return uint32(len(s.indices))
}

// Advance moves the logical frame forward by one: the next physical slot is
// the current one incremented mod N (or slot 0 on the very first call), and
// the history ring shifts so Index(k) becomes the old Index(k-1).
func (s *Sequencer) Advance() {
	n := uint32(len(s.indices))
	if s.current >= n {
		// First frame.
		s.current = 0
	} else {
		s.current++
		if s.current > n-1 {
			s.current = 0
		}
		for i := len(s.indices) - 1; i >= 1; i-- {
			s.indices[i] = s.indices[i-1]
		}
	}
	s.indices[0] = s.current
}

// Index resolves the physical slot used rel frames ago. Index(0) is the
// current frame's slot. rel >= N returns the sentinel N: no such historical
// frame exists (either the ring is shorter than rel or not enough frames have
// elapsed yet, in which case the stored value is already the sentinel).
//
// Parameters:
//   - rel: how many frames in the past to resolve
//
// Returns:
//   - uint32: the physical slot index, or N as the sentinel
func (s *Sequencer) Index(rel uint32) uint32 {
	if rel >= uint32(len(s.indices)) {
		return uint32(len(s.indices))
	}
	return s.indices[rel]
}
