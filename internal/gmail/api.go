// Package gmail provides a Gmail API client with rate limiting and retry logic.
package gmail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Collection identifies a listable Gmail users.* collection.
// The set is closed: anything outside it is rejected before a network call.
type Collection string

const (
	CollectionMessages Collection = "messages"
	CollectionLabels   Collection = "labels"
	CollectionThreads  Collection = "threads"
	CollectionDrafts   Collection = "drafts"
)

// ParseCollection maps a method name to a supported collection.
func ParseCollection(name string) (Collection, error) {
	switch Collection(name) {
	case CollectionMessages, CollectionLabels, CollectionThreads, CollectionDrafts:
		return Collection(name), nil
	}
	return "", &UnknownCollectionError{Name: name}
}

// UnknownCollectionError indicates a method name outside the supported set.
type UnknownCollectionError struct {
	Name string
}

func (e *UnknownCollectionError) Error() string {
	return fmt.Sprintf("unknown collection: %q", e.Name)
}

// Params holds outbound request parameters for list calls.
// Values may be string, []string, int, int64, or bool.
type Params map[string]any

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Int returns the named parameter as an int, if it carries an integer value.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Values encodes the parameters as URL query values.
// List values become repeated parameters, matching the Gmail API schema.
func (p Params) Values() url.Values {
	vals := url.Values{}
	for k, v := range p {
		switch t := v.(type) {
		case string:
			vals.Set(k, t)
		case []string:
			for _, s := range t {
				vals.Add(k, s)
			}
		case int:
			vals.Set(k, strconv.Itoa(t))
		case int64:
			vals.Set(k, strconv.FormatInt(t, 10))
		case bool:
			vals.Set(k, strconv.FormatBool(t))
		default:
			vals.Set(k, fmt.Sprint(t))
		}
	}
	return vals
}

// API defines the interface for Gmail operations.
// This interface enables mocking for tests without hitting the real API.
type API interface {
	// GetProfile returns the authenticated user's profile.
	GetProfile(ctx context.Context) (*Profile, error)

	// List returns one page of items from the given collection.
	List(ctx context.Context, coll Collection, params Params) (*ListPage, error)

	// GetMessageBatch fetches full message details for the given IDs.
	// Results are returned in input order; a failed fetch carries its error
	// in the corresponding BatchResult rather than failing the whole batch.
	GetMessageBatch(ctx context.Context, messageIDs []string) ([]BatchResult, error)

	// Close releases any resources held by the client.
	Close() error
}

// Profile represents a Gmail user profile.
type Profile struct {
	EmailAddress  string
	MessagesTotal int64
	ThreadsTotal  int64
	HistoryID     uint64
}

// ListItem is one item from a list response. ID is populated when the
// collection's items carry an "id" field; Fields holds the raw object.
type ListItem struct {
	ID     string
	Fields map[string]any
}

// ListPage contains one page of list results.
type ListPage struct {
	Items              []ListItem
	NextPageToken      string
	ResultSizeEstimate int64
}

// BatchResult is the outcome of one detail fetch within a batch.
type BatchResult struct {
	ID      string
	Message *MessageDetail
	Err     error
}

// MessageDetail is the full representation of one message.
// It is read-only input for row assembly.
type MessageDetail struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Snippet  string
	Payload  *MessagePart
}

// MessagePart is one node of the payload tree: either a single body or a
// container of sub-parts.
type MessagePart struct {
	MimeType string         `json:"mimeType"`
	Headers  []Header       `json:"headers"`
	Body     *MessagePBody  `json:"body"`
	Parts    []*MessagePart `json:"parts"`
}

// Header is one raw message header as returned by the API.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessagePBody carries base64url-encoded body data.
type MessagePBody struct {
	Size int64  `json:"size"`
	Data string `json:"data"`
}
