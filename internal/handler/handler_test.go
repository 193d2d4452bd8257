package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gmailsql/gmailsql/internal/gmail"
)

func TestSelect(t *testing.T) {
	mock := newTestMock(4, 2)
	h := New(mock, WithLogger(discardLogger()))

	result, err := h.Select(context.Background(), "SELECT id, threadId, subject FROM messages LIMIT 3")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	// Projection resolves names case-insensitively against the frame's
	// canonical spelling.
	wantColumns := []string{"id", "threadId", "subject"}
	if diff := cmp.Diff(wantColumns, result.Columns()); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}

	if result.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", result.NumRows())
	}

	want := []any{"m1", "tm1", "msg m1"}
	if diff := cmp.Diff(want, result.Values(0)); diff != "" {
		t.Errorf("Values(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_StarUsesDefaultColumns(t *testing.T) {
	mock := newTestMock(1, 1)
	h := New(mock, WithLogger(discardLogger()))

	result, err := h.Select(context.Background(), "SELECT * FROM messages")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	columns := result.Columns()
	if len(columns) != len(h.Columns()) {
		t.Fatalf("len(Columns()) = %d, want %d", len(columns), len(h.Columns()))
	}
	// The default set resolves to canonical spellings, threadId included.
	found := false
	for _, c := range columns {
		if c == "threadId" {
			found = true
		}
	}
	if !found {
		t.Errorf("Columns() = %v, want threadId present", columns)
	}
}

func TestSelect_EmptyMailboxKeepsColumnSpelling(t *testing.T) {
	empty := gmail.NewMockAPI()
	full := newTestMock(1, 1)

	sql := "SELECT * FROM messages"

	emptyResult, err := New(empty, WithLogger(discardLogger())).Select(context.Background(), sql)
	if err != nil {
		t.Fatalf("Select() on empty mailbox error = %v", err)
	}
	fullResult, err := New(full, WithLogger(discardLogger())).Select(context.Background(), sql)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if emptyResult.NumRows() != 0 {
		t.Fatalf("NumRows() = %d, want 0", emptyResult.NumRows())
	}
	// The schema must not depend on whether any rows arrived.
	if diff := cmp.Diff(fullResult.Columns(), emptyResult.Columns()); diff != "" {
		t.Errorf("empty vs populated columns differ (-full +empty):\n%s", diff)
	}
}

func TestSelect_TranslationErrorFailsFast(t *testing.T) {
	mock := newTestMock(1, 1)
	h := New(mock, WithLogger(discardLogger()))

	_, err := h.Select(context.Background(), "SELECT * FROM messages WHERE bogus = 1")
	if err == nil {
		t.Fatal("Select() expected error")
	}
	if mock.ListCalls != 0 {
		t.Errorf("ListCalls = %d, want 0: no network call on a rejected query", mock.ListCalls)
	}
}

func TestSelect_QueryFilterReachesAPI(t *testing.T) {
	mock := newTestMock(1, 1)
	h := New(mock, WithLogger(discardLogger()))

	_, err := h.Select(context.Background(),
		"SELECT id FROM messages WHERE q = 'from:alice' AND label_ids = 'INBOX,UNREAD' LIMIT 1")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if got := mock.LastParams["q"]; got != "from:alice" {
		t.Errorf("q = %v, want from:alice", got)
	}
	if diff := cmp.Diff([]string{"INBOX", "UNREAD"}, mock.LastParams["labelIds"]); diff != "" {
		t.Errorf("labelIds mismatch (-want +got):\n%s", diff)
	}
}

func TestNativeQuery(t *testing.T) {
	mock := gmail.NewMockAPI()
	mock.CollectionItems = map[gmail.Collection][]map[string]any{
		gmail.CollectionLabels: {
			{"id": "INBOX", "name": "INBOX"},
		},
	}
	h := New(mock, WithLogger(discardLogger()))

	result, err := h.NativeQuery(context.Background(), "labels()")
	if err != nil {
		t.Fatalf("NativeQuery() error = %v", err)
	}
	if result.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", result.NumRows())
	}

	records := result.Records()
	if records[0]["name"] != "INBOX" {
		t.Errorf("name = %v, want INBOX", records[0]["name"])
	}
}

func TestNativeQuery_UnknownMethod(t *testing.T) {
	mock := gmail.NewMockAPI()
	h := New(mock, WithLogger(discardLogger()))

	_, err := h.NativeQuery(context.Background(), "history(startHistoryId=5)")
	if err == nil {
		t.Fatal("NativeQuery() expected error for unsupported method")
	}
	if mock.ListCalls != 0 {
		t.Errorf("ListCalls = %d, want 0", mock.ListCalls)
	}
}

func TestCheckConnection(t *testing.T) {
	mock := gmail.NewMockAPI()
	h := New(mock, WithLogger(discardLogger()))

	if err := h.CheckConnection(context.Background()); err != nil {
		t.Errorf("CheckConnection() error = %v", err)
	}

	mock.ProfileError = fmt.Errorf("token expired")
	err := h.CheckConnection(context.Background())
	if err == nil {
		t.Fatal("CheckConnection() expected error")
	}
	if !strings.Contains(err.Error(), "error connecting to the Gmail API") {
		t.Errorf("error = %q, want connection message", err)
	}
}

func TestColumns(t *testing.T) {
	columns := New(gmail.NewMockAPI()).Columns()
	if columns[0] != "id" || columns[1] != "threadId" || columns[2] != "labels" {
		t.Errorf("Columns() prefix = %v, want [id threadId labels ...]", columns[:3])
	}
	if len(columns) != 3+len(filteredMessageHeaders) {
		t.Errorf("len(Columns()) = %d, want %d", len(columns), 3+len(filteredMessageHeaders))
	}
}
