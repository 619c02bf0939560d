package board

import "context"

// Flip implements the flip operation of spec §4.3: the engine distinguishes
// first-card attempts (player controls 0 or 2 cells on entry) from
// second-card attempts (player controls exactly 1). Only the first-card
// acquisition path (spec §4.4) can block; ctx governs that wait only.
func (b *Board) Flip(ctx context.Context, player string, row, col int) (string, error) {
	if !ValidPlayerID(player) {
		return "", ErrInvalidPlayer
	}

	b.mu.Lock()
	idx, inBounds := b.indexLocked(row, col)
	if !inBounds {
		b.mu.Unlock()
		return "", ErrOutOfBounds
	}
	ps := b.playerStateLocked(player)

	if len(ps.controlled) == 1 {
		result, err := b.secondCardLocked(ps, player, idx)
		b.mu.Unlock()
		return result, err
	}

	// First-card attempt: turn-start cleanup runs before anything else.
	b.turnStartCleanupLocked(ps)

	if b.cells[idx].card == "" {
		b.mu.Unlock()
		return "", ErrNoCard // rule 1-A
	}
	b.mu.Unlock()

	if err := b.acquireFirstCard(ctx, player, idx); err != nil {
		return "", err
	}
	return b.Look(player)
}

// turnStartCleanupLocked runs rules 3-A and 3-B. Callers must hold b.mu.
func (b *Board) turnStartCleanupLocked(ps *playerState) {
	if ps.hasPendingMatched {
		i, j := ps.pendingMatched[0], ps.pendingMatched[1]
		b.removeCardLocked(i)
		b.removeCardLocked(j)
		ps.hasPendingMatched = false
		b.bumpVersionLocked()
		return
	}

	changed := false
	for idx := range ps.lastRevealed {
		c := &b.cells[idx]
		if c.card != "" && c.faceUp && c.controller == "" {
			c.faceUp = false
			changed = true
		}
	}
	ps.lastRevealed = make(map[int]bool)
	if changed {
		b.bumpVersionLocked()
	}
}

// removeCardLocked clears a matched cell to absent and releases any
// control over it (rule 3-A). Callers must hold b.mu.
func (b *Board) removeCardLocked(idx int) {
	c := &b.cells[idx]
	c.card = ""
	c.faceUp = false
	b.releaseControlLocked(idx)
}

// secondCardLocked implements rules 2-A through 2-E. Callers must hold
// b.mu; ps.controlled must have exactly one entry.
func (b *Board) secondCardLocked(ps *playerState, player string, idx int) (string, error) {
	first := ps.controlled[0]
	target := &b.cells[idx]
	firstCard := b.cells[first].card

	if target.card == "" {
		// 2-A: target already gone.
		b.releaseControlLocked(first)
		ps.lastRevealed[first] = true
		b.bumpVersionLocked()
		return "", ErrNoCard
	}

	if target.faceUp && target.controller != "" {
		// 2-B: target already claimed, by anyone (including self).
		b.releaseControlLocked(first)
		ps.lastRevealed[first] = true
		b.bumpVersionLocked()
		return "", ErrSecondControlled
	}

	if !target.faceUp {
		// 2-C: reveal it; match/mismatch is decided below.
		target.faceUp = true
	}

	if target.card == firstCard {
		// 2-D: match.
		target.controller = player
		ps.controlled = append(ps.controlled, idx)
		ps.pendingMatched = [2]int{first, idx}
		ps.hasPendingMatched = true
		b.bumpVersionLocked()
		return b.lookLocked(player), nil
	}

	// 2-E: mismatch. Not an error — a successful, observable turn outcome.
	b.releaseControlLocked(first)
	ps.lastRevealed[first] = true
	ps.lastRevealed[idx] = true
	b.bumpVersionLocked()
	return b.lookLocked(player), nil
}

// acquireFirstCard runs the first-card acquisition protocol of spec §4.4.
// It manages b.mu itself because it may need to release the lock while
// the caller waits its turn in the cell's FIFO.
func (b *Board) acquireFirstCard(ctx context.Context, player string, idx int) error {
	b.mu.Lock()
	c := &b.cells[idx]

	if c.card == "" {
		b.mu.Unlock()
		return ErrNoCard
	}
	if c.controller == "" && len(c.waiters) == 0 && !c.pendingWake {
		b.grantFirstCardLocked(player, idx)
		b.mu.Unlock()
		return nil
	}

	ch := make(chan struct{}, 1)
	c.waiters = append(c.waiters, ch)
	b.mu.Unlock()

	select {
	case <-ch:
		b.mu.Lock()
		c = &b.cells[idx]
		c.pendingWake = false
		if c.card == "" {
			// Rule 4: the cell's card was removed while we waited.
			b.wakeHeadLocked(idx)
			b.mu.Unlock()
			return ErrNoCard
		}
		if c.controller != "" {
			// A second-card flip (rule 2-D) claimed the cell while our
			// wake was in flight; re-enter the protocol from step 1.
			b.mu.Unlock()
			return b.acquireFirstCard(ctx, player, idx)
		}
		// pendingWake blocked every first-card newcomer until we got
		// here, and the cell is still unowned, so we acquire it.
		b.grantFirstCardLocked(player, idx)
		b.mu.Unlock()
		return nil

	case <-ctx.Done():
		b.mu.Lock()
		c = &b.cells[idx]
		removed := false
		for i, w := range c.waiters {
			if w == ch {
				c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			// We were already signaled; drain the wake and pass it on
			// so the next waiter in line isn't stranded.
			select {
			case <-ch:
			default:
			}
			c.pendingWake = false
			b.wakeHeadLocked(idx)
		}
		b.mu.Unlock()
		return ctx.Err()
	}
}

func (b *Board) grantFirstCardLocked(player string, idx int) {
	c := &b.cells[idx]
	c.controller = player
	c.faceUp = true
	ps := b.playerStateLocked(player)
	ps.controlled = append(ps.controlled, idx)
	b.bumpVersionLocked()
}
