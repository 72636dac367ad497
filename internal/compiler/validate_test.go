package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinda/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValidManifest(t *testing.T) {
	specs := []ir.ClassSpec{
		{Name: "Titled", Values: ir.IRObject{"title": ir.IRString("x")}},
		{Name: "Movie", Version: "0.1.0", Includes: []string{"Titled"}},
		{Name: "Movie", Version: "0.1.1", Includes: []string{"Movie@0.1.0"}},
		{Name: "Film", Extends: "Movie@0.1.1", Statics: ir.IRObject{"_hidden": ir.IRBool(true)}},
	}

	assert.Empty(t, Validate(specs))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		specs []ir.ClassSpec
		code  string
		field string
	}{
		{
			name:  "empty name",
			specs: []ir.ClassSpec{{Name: " "}},
			code:  ErrClassNameInvalid,
			field: "classes[0].name",
		},
		{
			name:  "name with version",
			specs: []ir.ClassSpec{{Name: "A@1.0.0"}},
			code:  ErrClassNameInvalid,
			field: "classes[0].name",
		},
		{
			name:  "bad version",
			specs: []ir.ClassSpec{{Name: "A", Version: "1.0"}},
			code:  ErrInvalidVersion,
			field: "classes[0].version",
		},
		{
			name:  "bad reference",
			specs: []ir.ClassSpec{{Name: "A", Extends: "B@next"}},
			code:  ErrInvalidReference,
			field: "classes[0].extends",
		},
		{
			name:  "duplicate class",
			specs: []ir.ClassSpec{{Name: "A", Version: "1.0.0"}, {Name: "A", Version: "1.0.0"}},
			code:  ErrDuplicateClass,
			field: "classes[1].name",
		},
		{
			name:  "duplicate include",
			specs: []ir.ClassSpec{{Name: "B"}, {Name: "A", Includes: []string{"B", "B"}}},
			code:  ErrDuplicateInclude,
			field: "classes[1].includes[1]",
		},
		{
			name:  "self include",
			specs: []ir.ClassSpec{{Name: "A", Version: "1.0.0", Includes: []string{"A@1.0.0"}}},
			code:  ErrSelfReference,
			field: "classes[0].includes[0]",
		},
		{
			name:  "reserved value",
			specs: []ir.ClassSpec{{Name: "A", Values: ir.IRObject{"_creator": ir.IRInt(1)}}},
			code:  ErrReservedMember,
			field: "classes[0].values._creator",
		},
		{
			name: "cycle",
			specs: []ir.ClassSpec{
				{Name: "A", Includes: []string{"B"}},
				{Name: "B", Extends: "A"},
			},
			code:  ErrDependencyCycle,
			field: "classes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.specs)
			require.Len(t, errs, 1, "got %v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	errs := Validate([]ir.ClassSpec{
		{Name: "", Version: "x"},
		{Name: "B", Includes: []string{"@1.0.0"}},
	})

	assert.Equal(t, []string{ErrClassNameInvalid, ErrInvalidVersion, ErrInvalidReference}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "classes[0].name", Message: "invalid class name \"\"", Code: ErrClassNameInvalid}
	assert.Equal(t, `[E101] classes[0].name: invalid class name ""`, err.Error())
}
