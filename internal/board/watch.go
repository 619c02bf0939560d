package board

import "context"

// Watch returns the next view after any version bump at or after the
// call (spec §4.6). The current listener channel is captured under the
// board's lock, and every bump closes the channel it replaces, so no
// bump after that capture can be missed; no separate version sample is
// taken.
func (b *Board) Watch(ctx context.Context, player string) (string, error) {
	if !ValidPlayerID(player) {
		return "", ErrInvalidPlayer
	}

	b.mu.Lock()
	ch := b.changedCh
	b.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return b.Look(player)
}
