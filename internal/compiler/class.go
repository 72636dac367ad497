package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kinda/internal/ir"
)

// CompileManifest compiles every class under the top-level "class" field.
// Classes are returned in declaration order.
//
//	class: Movie: {
//		version:  "0.1.0"
//		includes: ["Titled"]
//		values: year: 1979
//	}
func CompileManifest(v cue.Value) ([]ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	classVal := v.LookupPath(cue.ParsePath("class"))
	if !classVal.Exists() {
		return []ir.ClassSpec{}, nil
	}

	iter, err := classVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	specs := []ir.ClassSpec{}
	for iter.Next() {
		spec, err := CompileClass(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileClass parses a CUE value into a ClassSpec.
//
// The class name is the struct label unless a "name" field overrides it,
// which lets one file declare several versions of the same class:
//
//	class: MovieNext: { name: "Movie", version: "0.2.0" }
func CompileClass(v cue.Value) (*ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ClassSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.Name, err = optionalString(v, "name", spec.Name); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		return nil, &CompileError{Field: "name", Message: "class name is required", Pos: v.Pos()}
	}
	if spec.Version, err = optionalString(v, "version", ""); err != nil {
		return nil, err
	}
	if spec.Description, err = optionalString(v, "description", ""); err != nil {
		return nil, err
	}
	if spec.Extends, err = optionalString(v, "extends", ""); err != nil {
		return nil, err
	}

	includesVal := v.LookupPath(cue.ParsePath("includes"))
	if includesVal.Exists() {
		if includesVal.IncompleteKind() != cue.ListKind {
			return nil, &CompileError{
				Field:   "includes",
				Message: "includes must be a list of class references",
				Pos:     includesVal.Pos(),
			}
		}
		iter, err := includesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			ref, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   "includes",
					Message: "includes must be a list of class references",
					Pos:     iter.Value().Pos(),
				}
			}
			spec.Includes = append(spec.Includes, ref)
		}
	}

	if spec.Values, err = compileObject(v, "values"); err != nil {
		return nil, err
	}
	if spec.Statics, err = compileObject(v, "statics"); err != nil {
		return nil, err
	}

	return spec, nil
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func compileObject(v cue.Value, field string) (ir.IRObject, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if fv.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: field + " must be a struct", Pos: fv.Pos()}
	}
	val, err := compileValue(fv, field)
	if err != nil {
		return nil, err
	}
	return val.(ir.IRObject), nil
}

// compileValue converts a concrete CUE value to an IR value.
// Floats are forbidden.
func compileValue(v cue.Value, field string) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, incomplete(v, field, err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, incomplete(v, field, err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, incomplete(v, field, err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, incomplete(v, field, err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, incomplete(v, field, err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := compileValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func incomplete(v cue.Value, field string, err error) error {
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf("value must be concrete: %v", err),
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
