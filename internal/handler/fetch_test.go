package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/gmailsql/gmailsql/internal/gmail"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestMock returns a mock with n messages spread over pages of the given
// size. Message IDs are "m1".."mN" with a trivial single-part body.
func newTestMock(n, pageSize int) *gmail.MockAPI {
	mock := gmail.NewMockAPI()

	var page []string
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("m%d", i)
		mock.SetupMessages(&gmail.MessageDetail{
			ID:       id,
			ThreadID: "t" + id,
			LabelIDs: []string{"INBOX"},
			Payload: &gmail.MessagePart{
				Headers: []gmail.Header{{Name: "Subject", Value: "msg " + id}},
				Body:    &gmail.MessagePBody{Size: 5, Data: "aGVsbG8"},
			},
		})
		page = append(page, id)
		if len(page) == pageSize {
			mock.MessagePages = append(mock.MessagePages, page)
			page = nil
		}
	}
	if len(page) > 0 {
		mock.MessagePages = append(mock.MessagePages, page)
	}
	return mock
}

func TestFetch_PaginatesUntilLimit(t *testing.T) {
	mock := newTestMock(9, 3)
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{"maxResults": 5})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if len(rows) != 5 {
		t.Errorf("len(rows) = %d, want 5", len(rows))
	}
	if mock.ListCalls != 2 {
		t.Errorf("ListCalls = %d, want 2", mock.ListCalls)
	}
}

func TestFetch_TruncatesOversizedPage(t *testing.T) {
	mock := newTestMock(5, 5)
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{"maxResults": 3})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
	// Only the budgeted items are hydrated.
	if got := len(mock.GetMessageCalls); got != 3 {
		t.Errorf("detail fetches = %d, want 3", got)
	}
}

func TestFetch_NoLimitFetchesSinglePage(t *testing.T) {
	mock := newTestMock(6, 3)
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	// Without a requested count, pagination stops after one page even
	// though the server advertised a next page token.
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
	if mock.ListCalls != 1 {
		t.Errorf("ListCalls = %d, want 1", mock.ListCalls)
	}
}

func TestFetch_DropsFailedItemsWithoutAborting(t *testing.T) {
	mock := newTestMock(4, 4)
	mock.GetMessageError["m2"] = fmt.Errorf("boom")
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
	for _, row := range rows {
		if row["id"] == "m2" {
			t.Error("failed message m2 should have been dropped")
		}
	}
}

func TestFetch_DropsUndecodableMessage(t *testing.T) {
	mock := newTestMock(2, 2)
	mock.SetupMessages(&gmail.MessageDetail{
		ID: "m1",
		Payload: &gmail.MessagePart{
			Body: &gmail.MessagePBody{Size: 4, Data: "!!bad!!"},
		},
	})
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0]["id"] != "m2" {
		t.Errorf("surviving row id = %v, want m2", rows[0]["id"])
	}
}

func TestFetch_ListErrorAborts(t *testing.T) {
	mock := newTestMock(3, 3)
	mock.ListError = fmt.Errorf("upstream down")
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{"maxResults": 3})
	if err == nil {
		t.Fatal("fetch() expected error")
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil on transport error", rows)
	}
}

func TestFetch_InjectsUserID(t *testing.T) {
	mock := newTestMock(1, 1)
	h := New(mock, WithLogger(discardLogger()))

	if _, err := h.fetch(context.Background(), gmail.CollectionMessages, gmail.Params{}); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if got := mock.LastParams["userId"]; got != "me" {
		t.Errorf("userId = %v, want %q", got, "me")
	}
}

func TestFetch_DoesNotMutateCallerParams(t *testing.T) {
	mock := newTestMock(4, 2)
	h := New(mock, WithLogger(discardLogger()))

	params := gmail.Params{"maxResults": 4}
	if _, err := h.fetch(context.Background(), gmail.CollectionMessages, params); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if len(params) != 1 {
		t.Errorf("caller params = %v, want untouched {maxResults: 4}", params)
	}
	if params["maxResults"] != 4 {
		t.Errorf("maxResults = %v, want 4", params["maxResults"])
	}
}

func TestFetch_NonMessageCollection(t *testing.T) {
	mock := gmail.NewMockAPI()
	mock.CollectionItems = map[gmail.Collection][]map[string]any{
		gmail.CollectionLabels: {
			{"id": "INBOX", "name": "INBOX", "type": "system"},
			{"id": "Label_1", "name": "receipts", "type": "user"},
		},
	}
	h := New(mock, WithLogger(discardLogger()))

	rows, err := h.fetch(context.Background(), gmail.CollectionLabels, gmail.Params{})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[1]["name"] != "receipts" {
		t.Errorf("rows[1][name] = %v, want receipts", rows[1]["name"])
	}
	if len(mock.GetMessageCalls) != 0 {
		t.Errorf("detail fetches = %d, want 0 for labels", len(mock.GetMessageCalls))
	}
}
