package store

import (
	"fmt"

	"github.com/roach88/kinda/internal/ir"
)

// marshalArgs converts trace args to canonical JSON TEXT for storage.
// Nil args are stored as "[]".
func marshalArgs(args ir.IRArray) (string, error) {
	if args == nil {
		args = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT back into trace args.
// Empty arrays come back as nil so a round trip preserves omitted args.
func unmarshalArgs(data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var args ir.IRArray
	if err := args.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}
