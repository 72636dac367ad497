package queryir

import "github.com/roach88/kinda/internal/ir"

// Filterable trace columns.
const (
	FieldID       = "id"
	FieldKind     = "kind"
	FieldObject   = "object"
	FieldEvent    = "event"
	FieldListener = "listener"
)

// Fields lists every column an Equals predicate may reference.
var Fields = []string{FieldID, FieldKind, FieldObject, FieldEvent, FieldListener}

// Predicate is a filter condition over trace records.
//
// This is a sealed interface; only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads the records of one run, optionally filtered.
//
// Results are always ordered by sequence number.
type Select struct {
	Run    string    // run ID (required)
	Filter Predicate // nil = every record
}

// Equals matches records whose column equals a literal.
//
// Value must be an ir.IRString; trace columns are all text.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// SeqRange matches records with Min <= seq <= Max.
// A zero bound is open.
type SeqRange struct {
	Min int64
	Max int64
}

func (SeqRange) predicateNode() {}

// And matches records satisfying every predicate. Empty And matches all.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds a Select for run whose filter is the conjunction of preds.
// A single predicate is used as-is; none leaves the filter nil.
func Where(run string, preds ...Predicate) Select {
	switch len(preds) {
	case 0:
		return Select{Run: run}
	case 1:
		return Select{Run: run, Filter: preds[0]}
	default:
		return Select{Run: run, Filter: And{Predicates: preds}}
	}
}
