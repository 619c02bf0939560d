package board

import "sync"

// cell is one board location. An empty card means the cell is absent
// (spec §3 invariant 1): !faceUp and controller == "" always follow.
type cell struct {
	card       string
	faceUp     bool
	controller string

	// waiters is the FIFO queue of goroutines blocked on first-card
	// acquisition of this cell (spec §4.4). pendingWake is true from the
	// moment the head waiter is signaled until it has retried, which
	// keeps newly-arrived contenders from jumping the queue in the gap.
	waiters     []chan struct{}
	pendingWake bool
}

// valueRegion is the per-value mutual-exclusion handle used by Replace
// (spec §4.5, §9). It is removed from Board.regions once its last holder
// departs, so the table never grows past the number of values currently
// being substituted.
type valueRegion struct {
	mu   sync.Mutex
	refs int
}

// Board is a mutable, observable grid of cards shared by every player
// operating on it. All exported methods are safe for concurrent use by
// many goroutines; see spec §5 for the exact suspension points.
type Board struct {
	mu     sync.Mutex
	height int
	width  int
	cells  []cell

	version   uint64
	changedCh chan struct{} // closed (and replaced) on every version bump

	players map[string]*playerState

	regionsMu sync.Mutex
	regions   map[string]*valueRegion
}

// New builds a board of the given dimensions, face-down and unowned,
// populated row-major from cards. len(cards) must equal height*width and
// every card must be non-empty.
func New(height, width int, cards []string) (*Board, error) {
	if height <= 0 || width <= 0 {
		return nil, parseErrorf("invalid dimensions %dx%d", height, width)
	}
	if len(cards) != height*width {
		return nil, parseErrorf("expected %d cards, got %d", height*width, len(cards))
	}
	b := &Board{
		height:    height,
		width:     width,
		cells:     make([]cell, height*width),
		changedCh: make(chan struct{}),
		players:   make(map[string]*playerState),
		regions:   make(map[string]*valueRegion),
	}
	for i, c := range cards {
		if c == "" {
			return nil, parseErrorf("empty card label at index %d", i)
		}
		b.cells[i].card = c
	}
	return b, nil
}

// Height and Width are immutable after construction.
func (b *Board) Height() int { return b.height }
func (b *Board) Width() int  { return b.width }

func (b *Board) indexLocked(row, col int) (int, bool) {
	if row < 0 || row >= b.height || col < 0 || col >= b.width {
		return 0, false
	}
	return row*b.width + col, true
}

// bumpVersionLocked records an observable change and wakes every current
// Watch listener. Callers must hold b.mu.
func (b *Board) bumpVersionLocked() {
	b.version++
	close(b.changedCh)
	b.changedCh = make(chan struct{})
}

// Version returns the current change counter, for tests and diagnostics.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// wakeHeadLocked pops and signals the head of idx's waiter queue, if any.
// The cell's controller must already be "" by the time this is called.
func (b *Board) wakeHeadLocked(idx int) {
	c := &b.cells[idx]
	if len(c.waiters) == 0 {
		return
	}
	head := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.pendingWake = true
	head <- struct{}{} // buffered cap 1, never blocks
}

// releaseControlLocked clears idx's controller (if any), drops it from
// that player's controlled set, and wakes the next waiter in line. It
// does not touch card/faceUp — callers set those first as each rule
// requires.
func (b *Board) releaseControlLocked(idx int) {
	c := &b.cells[idx]
	owner := c.controller
	c.controller = ""
	if owner != "" {
		if ps, ok := b.players[owner]; ok {
			removeControlled(ps, idx)
		}
	}
	b.wakeHeadLocked(idx)
}
