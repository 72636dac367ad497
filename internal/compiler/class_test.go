package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinda/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileClassBasic(t *testing.T) {
	v := compileString(t, `
		class: Movie: {
			version:     "0.1.0"
			description: "A film"
			extends:     "Base@1.0.0"
			includes: ["Titled", "Rated@2.0.0"]
			values: {
				year:   1979
				title:  "Alien"
				color:  true
				tags: ["scifi", 1]
				crew: director: "Scott"
				sequel: null
			}
			statics: kind: "film"
		}
	`)

	spec, err := CompileClass(v.LookupPath(cue.ParsePath("class.Movie")))
	require.NoError(t, err)

	assert.Equal(t, &ir.ClassSpec{
		Name:        "Movie",
		Version:     "0.1.0",
		Description: "A film",
		Extends:     "Base@1.0.0",
		Includes:    []string{"Titled", "Rated@2.0.0"},
		Values: ir.IRObject{
			"year":   ir.IRInt(1979),
			"title":  ir.IRString("Alien"),
			"color":  ir.IRBool(true),
			"tags":   ir.IRArray{ir.IRString("scifi"), ir.IRInt(1)},
			"crew":   ir.IRObject{"director": ir.IRString("Scott")},
			"sequel": ir.IRNull{},
		},
		Statics: ir.IRObject{"kind": ir.IRString("film")},
	}, spec)
}

func TestCompileClassNameOverride(t *testing.T) {
	v := compileString(t, `class: MovieNext: { name: "Movie", version: "0.2.0" }`)

	spec, err := CompileClass(v.LookupPath(cue.ParsePath("class.MovieNext")))
	require.NoError(t, err)
	assert.Equal(t, "Movie", spec.Name)
	assert.Equal(t, "0.2.0", spec.Version)
	assert.Nil(t, spec.Values)
	assert.Nil(t, spec.Includes)
}

func TestCompileClassErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"float value", `class: A: values: ratio: 1.5`, "values.ratio"},
		{"nested float", `class: A: values: list: [1, 2.5]`, "values.list[1]"},
		{"incomplete value", `class: A: values: title: string`, "values.title"},
		{"version not string", `class: A: version: 1`, "version"},
		{"extends not string", `class: A: extends: ["B"]`, "extends"},
		{"includes not strings", `class: A: includes: [1]`, "includes"},
		{"includes not a list", `class: A: includes: "B"`, "includes"},
		{"values not struct", `class: A: values: "x"`, "values"},
		{"empty name", `class: A: name: ""`, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileClass(v.LookupPath(cue.ParsePath("class.A")))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileManifest(t *testing.T) {
	v := compileString(t, `
		class: Titled: values: title: "Untitled"
		class: Movie: {
			version: "0.1.0"
			includes: ["Titled"]
		}
		other: "ignored"
	`)

	specs, err := CompileManifest(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Titled", specs[0].Name)
	assert.Equal(t, "Movie", specs[1].Name)
}

func TestCompileManifestEmpty(t *testing.T) {
	specs, err := CompileManifest(compileString(t, `other: 1`))
	require.NoError(t, err)
	assert.NotNil(t, specs)
	assert.Empty(t, specs)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "values.x", Message: "float values are forbidden"}
	assert.Equal(t, "values.x: float values are forbidden", err.Error())
}
