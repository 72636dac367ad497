package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/queryir"
)

const prefix = "SELECT id, seq, kind, object, event, listener, args FROM traces WHERE "

func TestCompile(t *testing.T) {
	emit := queryir.Equals{Field: queryir.FieldKind, Value: ir.IRString("emit")}
	film := &queryir.Equals{Field: queryir.FieldObject, Value: ir.IRString("film")}

	tests := []struct {
		name   string
		q      queryir.Select
		where  string
		params []any
	}{
		{"whole run", queryir.Where("r1"), "run = ?", []any{"r1"}},
		{"equals", queryir.Where("r1", emit), "run = ? AND kind = ?", []any{"r1", "emit"}},
		{"pointer equals", queryir.Where("r1", film), "run = ? AND object = ?", []any{"r1", "film"}},
		{"min only", queryir.Where("r1", queryir.SeqRange{Min: 3}), "run = ? AND seq >= ?", []any{"r1", int64(3)}},
		{"max only", queryir.Where("r1", &queryir.SeqRange{Max: 9}), "run = ? AND seq <= ?", []any{"r1", int64(9)}},
		{"between", queryir.Where("r1", queryir.SeqRange{Min: 2, Max: 4}), "run = ? AND seq BETWEEN ? AND ?", []any{"r1", int64(2), int64(4)}},
		{"open range", queryir.Where("r1", queryir.SeqRange{}), "run = ?", []any{"r1"}},
		{"empty and", queryir.Select{Run: "r1", Filter: queryir.And{}}, "run = ?", []any{"r1"}},
		{
			"conjunction", queryir.Where("r1", emit, film, queryir.SeqRange{Min: 5}),
			"run = ? AND kind = ? AND object = ? AND seq >= ?",
			[]any{"r1", "emit", "film", int64(5)},
		},
		{
			"nested and", queryir.Where("r1", queryir.And{Predicates: []queryir.Predicate{emit, film}}, queryir.SeqRange{Max: 2}),
			"run = ? AND (kind = ? AND object = ?) AND seq <= ?",
			[]any{"r1", "emit", "film", int64(2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.q)
			require.NoError(t, err)
			assert.Equal(t, prefix+tt.where+" ORDER BY seq ASC, id COLLATE BINARY ASC", sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_NeverInterpolates(t *testing.T) {
	sql, params, err := Compile(queryir.Where("r1",
		queryir.Equals{Field: queryir.FieldListener, Value: ir.IRString("x' OR '1'='1")}))
	require.NoError(t, err)
	assert.NotContains(t, sql, "'1'='1")
	assert.NotContains(t, sql, "x'")
	assert.Equal(t, prefix+"run = ? AND listener = ? ORDER BY seq ASC, id COLLATE BINARY ASC", sql)
	assert.Equal(t, []any{"r1", "x' OR '1'='1"}, params)
}

func TestCompile_RejectsInvalidQuery(t *testing.T) {
	_, _, err := Compile(queryir.Where("r1", queryir.Equals{Field: "run; DROP TABLE traces", Value: ir.IRString("x")}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")

	_, _, err = Compile(queryir.Select{})
	assert.ErrorContains(t, err, "run is required")
}

func TestIRValueToParam(t *testing.T) {
	v, err := irValueToParam(ir.IRInt(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = irValueToParam(ir.IRBool(true))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = irValueToParam(ir.IRArray{})
	assert.Error(t, err)
}
