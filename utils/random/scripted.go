package random

import "sync"

// Scripted is a Source that replays fixed values. Once a script is
// exhausted it keeps returning its fallback (0 for Intn, 0.99 for Float64,
// i.e. "no proc" for every chance roll).
type Scripted struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

// NewScripted returns a Source replaying ints for Intn and floats for Float64.
func NewScripted(ints []int, floats []float64) *Scripted {
	return &Scripted{ints: ints, floats: floats}
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0.99
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

// Remaining reports how many Float64 values have not been consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.floats)
}
