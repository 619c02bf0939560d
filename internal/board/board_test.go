package board

import (
	"context"
	"strings"
	"testing"
)

// newAlternatingBoard builds the 5x5 A/B board used throughout spec §8's
// worked scenarios: row 0 = A B A B A, row 1 = B A B A B, etc.
func newAlternatingBoard(t *testing.T) *Board {
	t.Helper()
	cards := make([]string, 25)
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			v := "A"
			if (row+col)%2 == 1 {
				v = "B"
			}
			cards[row*5+col] = v
		}
	}
	b, err := New(5, 5, cards)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func mustFlip(t *testing.T, b *Board, player string, row, col int) string {
	t.Helper()
	view, err := b.Flip(context.Background(), player, row, col)
	if err != nil {
		t.Fatalf("Flip(%s,%d,%d): unexpected error %v", player, row, col, err)
	}
	return view
}

func TestValidPlayerID(t *testing.T) {
	valid := []string{"p1", "Player_2", "ABC", "a_b_c123"}
	invalid := []string{"", "p 1", "p-1", "p!", "héllo"}
	for _, id := range valid {
		if !ValidPlayerID(id) {
			t.Errorf("ValidPlayerID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if ValidPlayerID(id) {
			t.Errorf("ValidPlayerID(%q) = true, want false", id)
		}
	}
}

func TestFlipInvalidPlayer(t *testing.T) {
	b := newAlternatingBoard(t)
	if _, err := b.Flip(context.Background(), "bad id", 0, 0); err != ErrInvalidPlayer {
		t.Fatalf("got %v, want ErrInvalidPlayer", err)
	}
}

func TestFlipOutOfBounds(t *testing.T) {
	b := newAlternatingBoard(t)
	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {5, 0}, {0, 5}} {
		if _, err := b.Flip(context.Background(), "p1", rc[0], rc[1]); err != ErrOutOfBounds {
			t.Errorf("Flip(%d,%d): got %v, want ErrOutOfBounds", rc[0], rc[1], err)
		}
	}
}

func TestLookIsFunctionOfState(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0)

	v1, err := b.Look("p1")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	v0 := b.Version()
	v2, err := b.Look("p1")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("consecutive Look calls differ:\n%q\n%q", v1, v2)
	}
	if b.Version() != v0 {
		t.Fatalf("Look changed version: %d -> %d", v0, b.Version())
	}
}

// Scenario 1 (spec §8): P1 flips (0,0): view is "my A", version increases.
func TestScenario1FirstFlip(t *testing.T) {
	b := newAlternatingBoard(t)
	v0 := b.Version()
	view := mustFlip(t, b, "p1", 0, 0)
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "my A" {
		t.Fatalf("cell (0,0) = %q, want %q", lines[1], "my A")
	}
	if b.Version() != v0+1 {
		t.Fatalf("version = %d, want %d", b.Version(), v0+1)
	}
}

// Scenario 2: P1 flips (0,0) twice in a row: second call fails with
// second-controlled; the cell ends up "up A" (unowned, face-up).
func TestScenario2SelfSecondControlled(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0)

	_, err := b.Flip(context.Background(), "p1", 0, 0)
	if err != ErrSecondControlled {
		t.Fatalf("second flip: got %v, want ErrSecondControlled", err)
	}

	view, err := b.Look("p2")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "up A" {
		t.Fatalf("cell (0,0) = %q, want %q", lines[1], "up A")
	}
}

// Scenario 4: matched pair is removed lazily, at the owner's next
// first-card attempt.
func TestScenario4MatchThenRemoval(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0) // A
	view := mustFlip(t, b, "p1", 0, 2) // A: match

	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "my A" || lines[3] != "my A" {
		t.Fatalf("matched cells = %q, %q, want both %q", lines[1], lines[3], "my A")
	}

	mustFlip(t, b, "p1", 1, 1) // third flip triggers cleanup of the match

	view, err := b.Look("p1")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	lines = strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "none" || lines[3] != "none" {
		t.Fatalf("cells after removal = %q, %q, want %q", lines[1], lines[3], "none")
	}
}

// Scenario 5: mismatch leaves both cards face-up; the player's next
// first-card attempt re-covers them.
func TestScenario5MismatchThenRecover(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0) // A
	view := mustFlip(t, b, "p1", 1, 0) // B: mismatch, not an error

	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "up A" || lines[6] != "up B" {
		t.Fatalf("post-mismatch cells = %q, %q, want up/up", lines[1], lines[6])
	}

	mustFlip(t, b, "p1", 2, 2) // next first-card attempt re-covers them

	view, err := b.Look("p1")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	lines = strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1] != "down" || lines[6] != "down" {
		t.Fatalf("cells after recover = %q, %q, want %q", lines[1], lines[6], "down")
	}
}

func TestFlipNoCardOnAbsentCell(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0)
	mustFlip(t, b, "p1", 0, 2) // match A/A
	mustFlip(t, b, "p1", 1, 1) // cleanup removes (0,0) and (0,2)

	if _, err := b.Flip(context.Background(), "p1", 0, 0); err != ErrNoCard {
		t.Fatalf("got %v, want ErrNoCard", err)
	}
}

// Rule 2-A: a second-card target whose card has already been removed
// fails with no-card and releases the first card as a last-revealed
// candidate.
func TestSecondCardNoCard(t *testing.T) {
	b := newAlternatingBoard(t)
	mustFlip(t, b, "p1", 0, 0)        // A
	mustFlip(t, b, "p1", 0, 2)        // A: match, pending removal
	mustFlip(t, b, "p1", 1, 1)        // cleanup removes (0,0) and (0,2)

	mustFlip(t, b, "p2", 3, 3) // A, p2's first card

	_, err := b.Flip(context.Background(), "p2", 0, 0)
	if err != ErrNoCard {
		t.Fatalf("second card onto absent cell: got %v, want ErrNoCard", err)
	}

	view, err := b.Look("p2")
	if err != nil {
		t.Fatalf("Look: %v", err)
	}
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if lines[1+3*5+3] != "up A" {
		t.Fatalf("cell (3,3) = %q, want %q", lines[1+3*5+3], "up A")
	}
}
