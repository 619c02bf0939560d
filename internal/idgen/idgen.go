// Package idgen mints random identifiers; internal/activity uses them as
// the IDs of its recorded entries.
package idgen

import "github.com/google/uuid"

// New returns a fresh random identifier.
func New() string {
	return uuid.NewString()
}
