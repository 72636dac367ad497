package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/kinda/internal/class"
	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/version"
)

// Validation error codes (E100-E199)
const (
	ErrClassNameInvalid = "E101" // name missing or not an identifier
	ErrInvalidVersion   = "E102" // version is not MAJOR.MINOR.PATCH
	ErrInvalidReference = "E103" // extends/includes entry cannot be parsed
	ErrDuplicateClass   = "E104" // same name and version declared twice
	ErrDuplicateInclude = "E105" // same reference included twice
	ErrSelfReference    = "E106" // class extends or includes itself
	ErrReservedMember   = "E107" // value or static shadows a hook name
	ErrDependencyCycle  = "E108" // classes depend on each other
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var classNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var hookNames = map[string]bool{
	class.InitializerName:  true,
	class.CreatorName:      true,
	class.SerializerName:   true,
	class.UnserializerName: true,
}

// Validate checks a manifest's class specs. It returns all errors found,
// including dependency cycles, and does not fail fast.
func Validate(specs []ir.ClassSpec) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]int)
	for i, spec := range specs {
		prefix := fmt.Sprintf("classes[%d]", i)
		errs = append(errs, validateClassSpec(prefix, spec)...)

		key := version.Ref{Name: spec.Name, Version: spec.Version}.String()
		if j, ok := seen[key]; ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("class %q already declared at classes[%d]", key, j),
				Code:    ErrDuplicateClass,
			})
			continue
		}
		seen[key] = i
	}

	for _, cycle := range AnalyzeCycles(specs) {
		if len(cycle.Path) == 2 {
			// self references are reported per field above
			continue
		}
		errs = append(errs, ValidationError{
			Field:   "classes",
			Message: cycle.Message,
			Code:    ErrDependencyCycle,
		})
	}

	return errs
}

func validateClassSpec(prefix string, spec ir.ClassSpec) []ValidationError {
	var errs []ValidationError

	if !classNamePattern.MatchString(strings.TrimSpace(spec.Name)) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".name",
			Message: fmt.Sprintf("invalid class name %q", spec.Name),
			Code:    ErrClassNameInvalid,
		})
	}

	if err := version.Validate(spec.Version); err != nil {
		errs = append(errs, ValidationError{
			Field:   prefix + ".version",
			Message: err.Error(),
			Code:    ErrInvalidVersion,
		})
	}

	self := version.Ref{Name: spec.Name, Version: spec.Version}
	if spec.Extends != "" {
		errs = append(errs, validateReference(prefix+".extends", spec.Extends, self)...)
	}

	included := make(map[string]bool)
	for i, s := range spec.Includes {
		field := fmt.Sprintf("%s.includes[%d]", prefix, i)
		if included[s] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q is already included", s),
				Code:    ErrDuplicateInclude,
			})
			continue
		}
		included[s] = true
		errs = append(errs, validateReference(field, s, self)...)
	}

	errs = append(errs, validateMembers(prefix+".values", spec.Values)...)
	errs = append(errs, validateMembers(prefix+".statics", spec.Statics)...)

	return errs
}

func validateReference(field, s string, self version.Ref) []ValidationError {
	ref, err := version.ParseRef(s)
	if err != nil {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("invalid class reference %q: %v", s, err),
			Code:    ErrInvalidReference,
		}}
	}
	if version.Same(ref, self) && (ref.Version == "" || version.Compare(ref.Version, self.Version) == 0) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("class %s refers to itself", self),
			Code:    ErrSelfReference,
		}}
	}
	return nil
}

func validateMembers(field string, members ir.IRObject) []ValidationError {
	var errs []ValidationError
	for _, name := range members.SortedKeys() {
		if hookNames[name] {
			errs = append(errs, ValidationError{
				Field:   field + "." + name,
				Message: fmt.Sprintf("%q is reserved for a construction hook", name),
				Code:    ErrReservedMember,
			})
		}
	}
	return errs
}
