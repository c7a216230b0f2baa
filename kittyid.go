package termpix

import (
	"fmt"
	"sync"
)

// Kitty image IDs live in a bounded range so a long-lived process cannot
// leak terminal-side image slots without noticing.
const (
	kittyIDMin = 1
	kittyIDMax = 4096
)

// ErrIDExhausted is returned when every ID in the range is held by a
// live placement and the free pool is empty.
var ErrIDExhausted = fmt.Errorf("kitty image id space exhausted [%d,%d)", kittyIDMin, kittyIDMax)

// IDAllocator hands out Kitty image IDs. Freed IDs are reused in FIFO
// order before new sequential IDs are minted, so a stable workload keeps
// touching the same small set of terminal-side slots. Safe for
// concurrent use.
type IDAllocator struct {
	mu   sync.Mutex
	next uint32
	free []uint32
	live map[uint32]struct{}
}

// NewIDAllocator creates an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{
		next: kittyIDMin,
		live: make(map[uint32]struct{}),
	}
}

// Allocate returns an ID not held by any live placement, reusing freed
// IDs before growing, or ErrIDExhausted when the range is full.
func (a *IDAllocator) Allocate() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) > 0 {
		id := a.free[0]
		a.free = a.free[1:]
		a.live[id] = struct{}{}
		return id, nil
	}

	if a.next >= kittyIDMax {
		return 0, ErrIDExhausted
	}

	id := a.next
	a.next++
	a.live[id] = struct{}{}
	return id, nil
}

// Release returns an ID to the free pool. Releasing an ID that is not
// live is a no-op, so double-release from racing teardown paths is safe.
func (a *IDAllocator) Release(id uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.live[id]; !ok {
		return
	}
	delete(a.live, id)
	a.free = append(a.free, id)
}

// Live returns the number of currently allocated IDs.
func (a *IDAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
