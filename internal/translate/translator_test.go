package translate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gmailsql/gmailsql/internal/gmail"
)

func TestTranslate(t *testing.T) {
	sql := `SELECT id, subject FROM messages
		WHERE q = 'from:alice' AND label_ids = 'INBOX,UNREAD' AND include_spam_trash = true
		LIMIT 10`

	plan, err := Translate(sql)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if plan.Collection != gmail.CollectionMessages {
		t.Errorf("Collection = %q, want %q", plan.Collection, gmail.CollectionMessages)
	}

	wantParams := gmail.Params{
		"q":                "from:alice",
		"labelIds":         []string{"INBOX", "UNREAD"},
		"includeSpamTrash": true,
		"maxResults":       10,
	}
	if diff := cmp.Diff(wantParams, plan.Params); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}

	wantColumns := []string{"id", "subject"}
	if diff := cmp.Diff(wantColumns, plan.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_Star(t *testing.T) {
	plan, err := Translate("SELECT * FROM messages")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if plan.Columns != nil {
		t.Errorf("Columns = %v, want nil for SELECT *", plan.Columns)
	}
	if len(plan.Params) != 0 {
		t.Errorf("Params = %v, want empty", plan.Params)
	}
}

func TestTranslate_ColumnOrderAndDuplicates(t *testing.T) {
	plan, err := Translate("SELECT Subject, id, subject FROM messages")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	want := []string{"subject", "id", "subject"}
	if diff := cmp.Diff(want, plan.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_DisjunctionRejected(t *testing.T) {
	// The disjunction is rejected on sight, before either operand is
	// validated, even when the operands themselves would not pass.
	queries := []string{
		"SELECT * FROM messages WHERE q = 'a' OR q = 'b'",
		"SELECT * FROM messages WHERE bogus > 1 OR other = 2",
		"SELECT * FROM messages WHERE q = 'a' AND (bogus = 1 OR q = 'b')",
	}

	for _, sql := range queries {
		_, err := Translate(sql)
		var opErr *UnsupportedOperatorError
		if !errors.As(err, &opErr) {
			t.Errorf("Translate(%q) error = %v, want *UnsupportedOperatorError", sql, err)
			continue
		}
		if opErr.Operator != "or" {
			t.Errorf("Translate(%q) operator = %q, want %q", sql, opErr.Operator, "or")
		}
	}
}

func TestTranslate_UnknownFilterColumn(t *testing.T) {
	_, err := Translate("SELECT * FROM messages WHERE sender = 'alice'")
	var clauseErr *UnsupportedClauseError
	if !errors.As(err, &clauseErr) {
		t.Fatalf("error = %v, want *UnsupportedClauseError", err)
	}
	if clauseErr.Clause != "sender" {
		t.Errorf("Clause = %q, want %q", clauseErr.Clause, "sender")
	}
}

func TestTranslate_NonEqualityOperator(t *testing.T) {
	_, err := Translate("SELECT * FROM messages WHERE q > 'a'")
	var opErr *UnsupportedOperatorError
	if !errors.As(err, &opErr) {
		t.Fatalf("error = %v, want *UnsupportedOperatorError", err)
	}
	if opErr.Operator != ">" {
		t.Errorf("Operator = %q, want %q", opErr.Operator, ">")
	}
}

func TestTranslate_SingleLabel(t *testing.T) {
	plan, err := Translate("SELECT * FROM messages WHERE label_ids = 'INBOX'")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	want := []string{"INBOX"}
	if diff := cmp.Diff(want, plan.Params["labelIds"]); diff != "" {
		t.Errorf("labelIds mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_UnknownTable(t *testing.T) {
	_, err := Translate("SELECT * FROM contacts")
	var invalidErr *InvalidQueryError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("error = %v, want *InvalidQueryError", err)
	}
}

func TestTranslate_NonSelect(t *testing.T) {
	// Parse failures and non-SELECT statements are the caller's fault and
	// carry the typed error, same as grammar violations.
	for _, sql := range []string{
		"DELETE FROM messages",
		"not sql at all ((",
		"SELECT * FROM messages LIMIT 'ten'",
		"SELECT count(*) FROM messages",
	} {
		_, err := Translate(sql)
		var invalidErr *InvalidQueryError
		if !errors.As(err, &invalidErr) {
			t.Errorf("Translate(%q) error = %v, want *InvalidQueryError", sql, err)
		}
	}
}

func TestTranslate_NoLimitLeavesMaxResultsUnset(t *testing.T) {
	plan, err := Translate("SELECT id FROM messages WHERE q = 'is:unread'")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if _, ok := plan.Params["maxResults"]; ok {
		t.Errorf("maxResults = %v, want unset without LIMIT", plan.Params["maxResults"])
	}
}

func TestCamelKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"q", "q"},
		{"label_ids", "labelIds"},
		{"include_spam_trash", "includeSpamTrash"},
		{"already", "already"},
		{"double__underscore", "doubleUnderscore"},
		{"trailing_", "trailing"},
	}

	for _, tc := range tests {
		if got := camelKey(tc.in); got != tc.want {
			t.Errorf("camelKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractConditions_Parens(t *testing.T) {
	plan, err := Translate("SELECT * FROM messages WHERE (q = 'a') AND (include_spam_trash = false)")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got := plan.Params["q"]; got != "a" {
		t.Errorf("q = %v, want %q", got, "a")
	}
	if got := plan.Params["includeSpamTrash"]; got != false {
		t.Errorf("includeSpamTrash = %v, want false", got)
	}
}
