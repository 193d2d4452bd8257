package translate

import (
	"fmt"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
)

// Condition is one comparison extracted from a WHERE clause.
// A disjunction is reported as a single condition with Op "or"; its operands
// are never inspected because the translator rejects it on sight.
type Condition struct {
	Op     string
	Column string
	Value  any
}

// extractConditions flattens a WHERE expression into comparison triples.
// Only conjunctions of binary comparisons are representable.
func extractConditions(expr sqlparser.Expr) ([]Condition, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left, err := extractConditions(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := extractConditions(e.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case *sqlparser.OrExpr:
		return []Condition{{Op: "or"}}, nil

	case *sqlparser.ParenExpr:
		return extractConditions(e.Expr)

	case *sqlparser.ComparisonExpr:
		col, ok := e.Left.(*sqlparser.ColName)
		if !ok {
			return nil, &UnsupportedClauseError{Clause: sqlparser.String(e.Left)}
		}
		val, err := conditionValue(e.Right)
		if err != nil {
			return nil, err
		}
		return []Condition{{Op: e.Operator, Column: col.Name.Lowered(), Value: val}}, nil

	default:
		return nil, &UnsupportedClauseError{Clause: sqlparser.String(expr)}
	}
}

// conditionValue converts a literal right-hand operand to a Go value.
func conditionValue(expr sqlparser.Expr) (any, error) {
	switch v := expr.(type) {
	case *sqlparser.SQLVal:
		switch v.Type {
		case sqlparser.StrVal, sqlparser.IntVal, sqlparser.FloatVal:
			return string(v.Val), nil
		}
		return nil, &InvalidQueryError{Msg: fmt.Sprintf("unsupported literal: %s", sqlparser.String(expr))}
	case sqlparser.BoolVal:
		return bool(v), nil
	case *sqlparser.NullVal:
		return nil, nil
	}
	return nil, &InvalidQueryError{Msg: fmt.Sprintf("unsupported value expression: %s", sqlparser.String(expr))}
}
