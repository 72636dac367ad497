package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestSortedKeys(t *testing.T) {
	obj := IRObject{"a": IRInt(1), "A": IRInt(2), "aa": IRInt(3), "Aa": IRInt(4)}
	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestFromGoAndBack(t *testing.T) {
	in := map[string]any{
		"title": "Untitled",
		"count": 3,
		"tags":  []any{"a", true, nil},
	}

	v, err := FromGo(in)
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"title": IRString("Untitled"),
		"count": IRInt(3),
		"tags":  IRArray{IRString("a"), IRBool(true), IRNull{}},
	}, v)

	assert.Equal(t, map[string]any{
		"title": "Untitled",
		"count": int64(3),
		"tags":  []any{"a", true, nil},
	}, ToGo(v))
}

func TestFromGoRejects(t *testing.T) {
	_, err := FromGo([]any{1, 2.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")

	_, err = FromGo(make(chan int))
	require.Error(t, err)
}

func TestArrayFromGo(t *testing.T) {
	arr, err := ArrayFromGo([]any{"x", 1})
	require.NoError(t, err)
	assert.Equal(t, IRArray{IRString("x"), IRInt(1)}, arr)
	assert.Equal(t, []any{"x", int64(1)}, arr.Values())
}

func TestIRObjectUnmarshalJSON(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"n":7,"s":"x","o":{"b":false}}`), &obj))
	assert.Equal(t, IRObject{
		"n": IRInt(7),
		"s": IRString("x"),
		"o": IRObject{"b": IRBool(false)},
	}, obj)

	err := json.Unmarshal([]byte(`{"f":1.25}`), &obj)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`[1]`), &obj)
	require.Error(t, err)
}

func TestIRArrayUnmarshalJSON(t *testing.T) {
	var arr IRArray
	require.NoError(t, json.Unmarshal([]byte(`[1,"a",null]`), &arr))
	assert.Equal(t, IRArray{IRInt(1), IRString("a"), IRNull{}}, arr)
}

func TestIRObjectMarshalJSONSortsKeys(t *testing.T) {
	out, err := json.Marshal(IRObject{"b": IRInt(1), "a": IRString("x")})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, string(out))
}

func TestClassSpecUnmarshalYAML(t *testing.T) {
	src := `
name: Movie
version: 0.1.0
includes: [Titled@1.0.0]
values:
  title: Untitled
  year: 1999
  cast: [a, b]
statics:
  kind: film
`
	var spec ClassSpec
	require.NoError(t, yaml.Unmarshal([]byte(src), &spec))

	assert.Equal(t, "Movie", spec.Name)
	assert.Equal(t, "0.1.0", spec.Version)
	assert.Equal(t, []string{"Titled@1.0.0"}, spec.Includes)
	assert.Equal(t, IRObject{
		"title": IRString("Untitled"),
		"year":  IRInt(1999),
		"cast":  IRArray{IRString("a"), IRString("b")},
	}, spec.Values)
	assert.Equal(t, IRObject{"kind": IRString("film")}, spec.Statics)
}

func TestClassSpecUnmarshalYAMLRejectsFloat(t *testing.T) {
	var spec ClassSpec
	err := yaml.Unmarshal([]byte("name: X\nvalues:\n  ratio: 0.5\n"), &spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")
}

func TestString(t *testing.T) {
	assert.Equal(t, `["a",1]`, String(IRArray{IRString("a"), IRInt(1)}))
}
