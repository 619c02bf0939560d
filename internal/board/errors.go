// Package board implements the Memory-Scramble concurrent board: a shared
// grid of cards mutated by many players under the flip/replace/watch rules.
package board

import (
	"errors"
	"fmt"
)

// Sentinel errors for the rule engine's failure modes. HTTP transports
// (see internal/boardhttp) map these onto status codes with errors.Is.
var (
	ErrInvalidPlayer    = errors.New("invalid player")
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrNoCard           = errors.New("no card")
	ErrSecondControlled = errors.New("second controlled")
)

// ParseError reports a malformed board file. It is always fatal to the
// caller that parsed it; there is no partial-board recovery.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse error: " + e.Reason }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}
