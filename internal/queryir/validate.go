package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/kinda/internal/ir"
)

// Validate reports every problem with q, joined, or nil when q is usable.
func Validate(q Select) error {
	v := &validator{}
	if q.Run == "" {
		v.addf("run is required")
	}
	v.validatePredicate(q.Filter, "filter")
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validatePredicate(p Predicate, path string) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred, path)
	case *Equals:
		v.validateEquals(*pred, path)
	case SeqRange:
		v.validateRange(pred, path)
	case *SeqRange:
		v.validateRange(*pred, path)
	case And:
		v.validateAnd(pred, path)
	case *And:
		v.validateAnd(*pred, path)
	default:
		v.addf("%s: unsupported predicate %T", path, p)
	}
}

func (v *validator) validateEquals(eq Equals, path string) {
	if !slices.Contains(Fields, eq.Field) {
		v.addf("%s: unknown field %q (want one of %v)", path, eq.Field, Fields)
	}
	if _, ok := eq.Value.(ir.IRString); !ok {
		v.addf("%s: %s must compare against a string, got %T", path, eq.Field, eq.Value)
	}
}

func (v *validator) validateRange(r SeqRange, path string) {
	if r.Min < 0 || r.Max < 0 {
		v.addf("%s: sequence bounds must not be negative", path)
	}
	if r.Max != 0 && r.Min > r.Max {
		v.addf("%s: empty sequence range %d..%d", path, r.Min, r.Max)
	}
}

func (v *validator) validateAnd(and And, path string) {
	for i, p := range and.Predicates {
		v.validatePredicate(p, fmt.Sprintf("%s.and[%d]", path, i))
	}
}
