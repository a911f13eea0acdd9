package history

// stack is a LIFO of snapshots. Push and pop happen at the tail only.
type stack struct {
	entries []Snapshot
}

func (s *stack) len() int {
	return len(s.entries)
}

// top returns the most recent entry, or nil if the stack is empty.
func (s *stack) top() Snapshot {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

func (s *stack) push(snap Snapshot) {
	s.entries = append(s.entries, snap)
}

// pushDistinct pushes snap unless it equals the current top.
// It reports whether snap was pushed.
func (s *stack) pushDistinct(snap Snapshot) bool {
	if s.len() > 0 && s.top().Equal(snap) {
		return false
	}
	s.push(snap)
	return true
}

func (s *stack) pop() Snapshot {
	n := len(s.entries)
	if n == 0 {
		return nil
	}
	snap := s.entries[n-1]
	s.entries[n-1] = nil
	s.entries = s.entries[:n-1]
	return snap
}

// drainInto moves every entry onto dst, one pop and one push at a time,
// so dst receives them in reverse order. It returns the number moved.
func (s *stack) drainInto(dst *stack) int {
	moved := 0
	for s.len() > 0 {
		dst.push(s.pop())
		moved++
	}
	return moved
}

// snapshot returns a copy of the entries, oldest first.
func (s *stack) snapshot() []Snapshot {
	out := make([]Snapshot, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *stack) clear() {
	s.entries = nil
}
