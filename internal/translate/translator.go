// Package translate maps a restricted SQL SELECT surface onto Gmail API
// list parameters.
package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"

	"github.com/gmailsql/gmailsql/internal/gmail"
)

// filterKeys are the WHERE columns that translate to list parameters.
// Anything else is rejected before a network call.
var filterKeys = map[string]bool{
	"q":                  true,
	"label_ids":          true,
	"include_spam_trash": true,
}

// Plan is the translated form of a SELECT query: the collection to list,
// the outbound parameters, and the requested projection.
// Columns is nil when the query selects *.
type Plan struct {
	Collection gmail.Collection
	Params     gmail.Params
	Columns    []string
}

// Translate parses a SELECT statement and produces a fetch plan.
// The supported grammar is a conjunction of equality comparisons over the
// filter key set, an optional LIMIT, and a target list of plain identifiers
// or *.
func Translate(sql string) (*Plan, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, &InvalidQueryError{Msg: "parse query", Err: err}
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, &InvalidQueryError{Msg: "not a SELECT statement"}
	}

	if err := checkTable(sel.From); err != nil {
		return nil, err
	}

	var conditions []Condition
	if sel.Where != nil {
		conditions, err = extractConditions(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
	}

	// Disjunctions are rejected before any operand validation.
	for _, c := range conditions {
		if c.Op == "or" {
			return nil, &UnsupportedOperatorError{Operator: "or"}
		}
	}

	params := gmail.Params{}
	for _, c := range conditions {
		if !filterKeys[c.Column] {
			return nil, &UnsupportedClauseError{Clause: c.Column}
		}
		if c.Op != sqlparser.EqualStr {
			return nil, &UnsupportedOperatorError{Operator: c.Op}
		}

		value := c.Value
		if c.Column == "label_ids" {
			// Comma-split only for the label key; all others pass through.
			value = strings.Split(fmt.Sprint(c.Value), ",")
		}
		params[camelKey(c.Column)] = value
	}

	if sel.Limit != nil {
		n, err := limitCount(sel.Limit)
		if err != nil {
			return nil, err
		}
		params["maxResults"] = n
	}

	columns, err := projection(sel.SelectExprs)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Collection: gmail.CollectionMessages,
		Params:     params,
		Columns:    columns,
	}, nil
}

// checkTable verifies the query targets the messages table.
func checkTable(from sqlparser.TableExprs) error {
	for _, expr := range from {
		aliased, ok := expr.(*sqlparser.AliasedTableExpr)
		if !ok {
			return &InvalidQueryError{Msg: fmt.Sprintf("unsupported FROM clause: %s", sqlparser.String(expr))}
		}
		table, ok := aliased.Expr.(sqlparser.TableName)
		if !ok {
			return &InvalidQueryError{Msg: fmt.Sprintf("unsupported FROM clause: %s", sqlparser.String(expr))}
		}
		name := table.Name.String()
		if !strings.EqualFold(name, string(gmail.CollectionMessages)) && name != "dual" {
			return &InvalidQueryError{Msg: fmt.Sprintf("unknown table: %q", name)}
		}
	}
	return nil
}

// projection computes the requested column list.
// * (anywhere in the target list) selects everything and returns nil;
// identifiers are lower-cased and kept in the order given, duplicates and all.
func projection(exprs sqlparser.SelectExprs) ([]string, error) {
	var columns []string
	for _, target := range exprs {
		switch t := target.(type) {
		case *sqlparser.StarExpr:
			return nil, nil
		case *sqlparser.AliasedExpr:
			col, ok := t.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, &InvalidQueryError{Msg: fmt.Sprintf("unsupported select target: %s", sqlparser.String(t))}
			}
			columns = append(columns, col.Name.Lowered())
		default:
			return nil, &InvalidQueryError{Msg: fmt.Sprintf("unsupported select target: %s", sqlparser.String(target))}
		}
	}
	return columns, nil
}

// limitCount extracts the LIMIT row count.
func limitCount(limit *sqlparser.Limit) (int, error) {
	val, ok := limit.Rowcount.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return 0, &InvalidQueryError{Msg: fmt.Sprintf("unsupported LIMIT: %s", sqlparser.String(limit))}
	}
	n, err := strconv.Atoi(string(val.Val))
	if err != nil {
		return 0, &InvalidQueryError{Msg: "parse LIMIT", Err: err}
	}
	return n, nil
}

var underscoreRuns = regexp.MustCompile(`_+`)

// camelKey rewrites a snake_case filter key to the API's camelCase parameter
// name: split on underscore runs, title-case every segment after the first,
// concatenate.
func camelKey(key string) string {
	segments := underscoreRuns.Split(key, -1)
	var b strings.Builder
	b.WriteString(segments[0])
	for _, seg := range segments[1:] {
		if seg == "" {
			continue
		}
		b.WriteString(strings.ToUpper(seg[:1]))
		b.WriteString(strings.ToLower(seg[1:]))
	}
	return b.String()
}
