package id

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// ULID yields lexically sortable identifiers so run listings order by creation.
// ulid.Make is monotonic within a process, so IDs minted in the same
// millisecond still sort in creation order.
type ULID struct{}

func (ULID) New() string {
	return ulid.Make().String()
}

// Sequence yields "<prefix>-1", "<prefix>-2", ... and is safe for concurrent use.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, s.n)
}
