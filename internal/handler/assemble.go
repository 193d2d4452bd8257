package handler

import (
	"fmt"
	"strings"

	"github.com/gmailsql/gmailsql/internal/frame"
	"github.com/gmailsql/gmailsql/internal/gmail"
)

// filteredMessageHeaders is the fixed set of headers retained in output rows,
// in output column order.
var filteredMessageHeaders = []string{
	"content_type",
	"content_transfer_encoding",
	"date",
	"delivered_to",
	"from",
	"message_id",
	"mime_version",
	"reply_to",
	"subject",
	"to",
	"x_feedback_id",
}

var headerAllowList = func() map[string]bool {
	m := make(map[string]bool, len(filteredMessageHeaders))
	for _, h := range filteredMessageHeaders {
		m[h] = true
	}
	return m
}()

// PayloadDecodeError indicates a message body that could not be decoded from
// its transport encoding.
type PayloadDecodeError struct {
	MessageID string
	Err       error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("decode payload of message %s: %v", e.MessageID, e.Err)
}

func (e *PayloadDecodeError) Unwrap() error {
	return e.Err
}

// assembleRow shapes one message detail into an output row: id, threadId,
// comma-joined labels, decoded body, and the allow-listed headers.
func assembleRow(msg *gmail.MessageDetail) (frame.Row, error) {
	body, err := decodeBody(msg)
	if err != nil {
		return nil, err
	}

	row := frame.Row{
		"id":       msg.ID,
		"threadId": msg.ThreadID,
		"labels":   strings.Join(msg.LabelIDs, ", "),
		"body":     body,
	}
	for key, value := range normalizeHeaders(msg.Payload) {
		row[key] = value
	}
	return row, nil
}

// normalizeHeaders maps raw header names to lower_snake form and keeps only
// the allow-listed subset. Duplicate keys are last-wins.
func normalizeHeaders(payload *gmail.MessagePart) map[string]string {
	headers := map[string]string{}
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		key := strings.ToLower(h.Name)
		key = strings.ReplaceAll(key, "-", "_")
		key = strings.ReplaceAll(key, " ", "")
		if !headerAllowList[key] {
			continue
		}
		headers[key] = h.Value
	}
	return headers
}

// decodeBody extracts the message body and decodes it from URL-safe base64.
func decodeBody(msg *gmail.MessageDetail) ([]byte, error) {
	if msg.Payload == nil {
		return nil, nil
	}

	data := encodedBodyData(msg.Payload)
	body, err := gmail.DecodeBase64URL(data)
	if err != nil {
		return nil, &PayloadDecodeError{MessageID: msg.ID, Err: err}
	}
	return body, nil
}

// encodedBodyData returns the still-encoded body content for a payload tree.
// A single-part payload carries data directly; a multipart payload is
// concatenated with each later part's data prepended, so parts [1..N] come
// out as N..1. That reverse ordering is long-standing observable behavior
// and is kept here, in one place, on purpose.
func encodedBodyData(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		return payload.Body.Data
	}

	var content string
	for _, part := range payload.Parts {
		if part == nil || part.Body == nil {
			continue
		}
		content = part.Body.Data + content
	}
	return content
}
