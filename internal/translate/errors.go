package translate

import "fmt"

// InvalidQueryError indicates a statement the parser rejected or a shape
// outside the supported SELECT grammar. It is the caller's fault, not the
// remote API's.
type InvalidQueryError struct {
	Msg string
	Err error
}

func (e *InvalidQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *InvalidQueryError) Unwrap() error {
	return e.Err
}

// UnsupportedClauseError indicates a WHERE condition on a column outside the
// supported filter set.
type UnsupportedClauseError struct {
	Clause string
}

func (e *UnsupportedClauseError) Error() string {
	return fmt.Sprintf("unsupported clause: %q", e.Clause)
}

// UnsupportedOperatorError indicates a comparison operator or combinator the
// translator cannot map onto the remote API.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator: %q", e.Operator)
}
