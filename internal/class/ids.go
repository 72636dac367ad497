package class

import (
	"github.com/google/uuid"
)

// IDGenerator produces object identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 object IDs.
//
// UUIDv7 puts the creation timestamp in the most significant bits, so IDs of
// objects created later sort after earlier ones in traces.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
