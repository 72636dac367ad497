// Package querysql compiles trace queries to parameterized SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/queryir"
)

// traceColumns is the projection scanned by the store.
const traceColumns = "id, seq, kind, object, event, listener, args"

// orderBy gives every trace query a total order.
const orderBy = " ORDER BY seq ASC, id COLLATE BINARY ASC"

// Compile converts a validated query to SQL and its parameters.
//
// Values are always bound as parameters, never interpolated.
func Compile(q queryir.Select) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	where := "run = ?"
	params := []any{q.Run}
	if q.Filter != nil {
		sql, fp, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if sql != "" {
			where += " AND " + sql
			params = append(params, fp...)
		}
	}

	return "SELECT " + traceColumns + " FROM traces WHERE " + where + orderBy, params, nil
}

// compilePredicate returns "" for predicates that match everything.
func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.SeqRange:
		return compileRange(pred), rangeParams(pred), nil
	case *queryir.SeqRange:
		return compileRange(*pred), rangeParams(*pred), nil
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileRange(r queryir.SeqRange) string {
	switch {
	case r.Min > 0 && r.Max > 0:
		return "seq BETWEEN ? AND ?"
	case r.Min > 0:
		return "seq >= ?"
	case r.Max > 0:
		return "seq <= ?"
	default:
		return ""
	}
}

func rangeParams(r queryir.SeqRange) []any {
	var params []any
	if r.Min > 0 {
		params = append(params, r.Min)
	}
	if r.Max > 0 {
		params = append(params, r.Max)
	}
	return params
}

func compileAnd(and queryir.And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		switch pred.(type) {
		case queryir.And, *queryir.And:
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// irValueToParam converts an ir.IRValue to a SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
