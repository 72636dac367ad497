// Package testutil provides deterministic stand-ins for the sources of
// nondeterminism in kinda: object IDs and trace sequence numbers.
//
// Both are used by the scenario harness so the same scenario always
// produces byte-identical traces.
package testutil
