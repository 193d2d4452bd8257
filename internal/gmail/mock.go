package gmail

import (
	"context"
	"fmt"
	"sync"
)

// MockAPI is a mock implementation of the Gmail API for testing.
type MockAPI struct {
	mu sync.Mutex

	// Profile to return
	Profile *Profile

	// Messages indexed by ID
	Messages map[string]*MessageDetail

	// Message list pages - each page is a list of message IDs
	MessagePages [][]string

	// Items returned for non-message collections (labels, threads, drafts)
	CollectionItems map[Collection][]map[string]any

	// Error injection
	ProfileError    error
	ListError       error
	GetMessageError map[string]error // Per-message errors

	// Call tracking for assertions
	ProfileCalls    int
	ListCalls       int
	LastParams      Params
	GetMessageCalls []string
}

// NewMockAPI creates a new mock API with empty state.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Messages:        make(map[string]*MessageDetail),
		GetMessageError: make(map[string]error),
	}
}

// GetProfile returns the mock profile.
func (m *MockAPI) GetProfile(ctx context.Context) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileCalls++

	if m.ProfileError != nil {
		return nil, m.ProfileError
	}
	if m.Profile == nil {
		return &Profile{
			EmailAddress:  "test@example.com",
			MessagesTotal: int64(len(m.Messages)),
		}, nil
	}
	return m.Profile, nil
}

// List returns mock pages. For the messages collection, pages come from
// MessagePages with "page_N" tokens; other collections return their
// configured items as a single page.
func (m *MockAPI) List(ctx context.Context, coll Collection, params Params) (*ListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	m.LastParams = params.Clone()

	if m.ListError != nil {
		return nil, m.ListError
	}

	if coll != CollectionMessages {
		items := m.CollectionItems[coll]
		page := &ListPage{Items: make([]ListItem, len(items))}
		for i, fields := range items {
			id, _ := fields["id"].(string)
			page.Items[i] = ListItem{ID: id, Fields: fields}
		}
		return page, nil
	}

	pageNum := 0
	if token, _ := params["pageToken"].(string); token != "" {
		if _, err := fmt.Sscanf(token, "page_%d", &pageNum); err != nil {
			return nil, fmt.Errorf("invalid page token: %s", token)
		}
	}

	if pageNum >= len(m.MessagePages) {
		return &ListPage{}, nil
	}

	ids := m.MessagePages[pageNum]
	page := &ListPage{Items: make([]ListItem, len(ids))}
	for i, id := range ids {
		threadID := "thread_" + id
		if msg, ok := m.Messages[id]; ok && msg.ThreadID != "" {
			threadID = msg.ThreadID
		}
		page.Items[i] = ListItem{
			ID:     id,
			Fields: map[string]any{"id": id, "threadId": threadID},
		}
	}

	if pageNum+1 < len(m.MessagePages) {
		page.NextPageToken = fmt.Sprintf("page_%d", pageNum+1)
	}

	total := int64(0)
	for _, p := range m.MessagePages {
		total += int64(len(p))
	}
	page.ResultSizeEstimate = total

	return page, nil
}

// GetMessageBatch fetches mock messages in input order.
// Mirrors the real Client behavior: individual fetch errors land in the
// per-item BatchResult rather than failing the entire batch.
func (m *MockAPI) GetMessageBatch(ctx context.Context, messageIDs []string) ([]BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]BatchResult, len(messageIDs))
	for i, id := range messageIDs {
		m.GetMessageCalls = append(m.GetMessageCalls, id)

		if err, ok := m.GetMessageError[id]; ok && err != nil {
			results[i] = BatchResult{ID: id, Err: err}
			continue
		}

		msg, ok := m.Messages[id]
		if !ok {
			results[i] = BatchResult{ID: id, Err: &NotFoundError{Path: "/messages/" + id}}
			continue
		}
		results[i] = BatchResult{ID: id, Message: msg}
	}
	return results, nil
}

// Close is a no-op for the mock.
func (m *MockAPI) Close() error {
	return nil
}

// SetupMessages adds pre-built MessageDetail values to the mock store.
// Nil entries are silently skipped.
func (m *MockAPI) SetupMessages(msgs ...*MessageDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Messages == nil {
		m.Messages = make(map[string]*MessageDetail)
	}
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		m.Messages[msg.ID] = msg
	}
}

// Reset clears all state and call tracking.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages = make(map[string]*MessageDetail)
	m.MessagePages = nil
	m.CollectionItems = nil
	m.GetMessageError = make(map[string]error)

	m.ProfileCalls = 0
	m.ListCalls = 0
	m.LastParams = nil
	m.GetMessageCalls = nil
}

// Ensure MockAPI implements API interface.
var _ API = (*MockAPI)(nil)
