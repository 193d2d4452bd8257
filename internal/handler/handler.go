// Package handler executes translated queries against the Gmail API and
// shapes the responses into tabular frames.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gmailsql/gmailsql/internal/command"
	"github.com/gmailsql/gmailsql/internal/frame"
	"github.com/gmailsql/gmailsql/internal/gmail"
	"github.com/gmailsql/gmailsql/internal/translate"
)

// Handler runs SELECT and free-form queries over one Gmail account.
// It is safe for concurrent use: every fetch owns its row buffer.
type Handler struct {
	api    gmail.API
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a handler over the given API client.
func New(api gmail.API, opts ...Option) *Handler {
	h := &Handler{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Columns returns the default column set for the messages table.
func (h *Handler) Columns() []string {
	return append([]string{"id", "threadId", "labels"}, filteredMessageHeaders...)
}

// Select translates and executes a SELECT query, returning the projected frame.
func (h *Handler) Select(ctx context.Context, sql string) (*frame.Frame, error) {
	plan, err := translate.Translate(sql)
	if err != nil {
		return nil, err
	}

	rows, err := h.fetch(ctx, plan.Collection, plan.Params)
	if err != nil {
		return nil, err
	}

	columns := plan.Columns
	if len(columns) == 0 {
		columns = h.Columns()
	}
	for i, col := range columns {
		columns[i] = strings.ToLower(col)
	}

	return frame.FromRows(rows, messageColumnOrder()).Project(columns), nil
}

// NativeQuery executes a free-form method(key=value, ...) command.
// No projection is applied; the frame carries whatever the API returned.
func (h *Handler) NativeQuery(ctx context.Context, query string) (*frame.Frame, error) {
	name, params, err := command.Parse(query)
	if err != nil {
		return nil, err
	}

	coll, err := gmail.ParseCollection(name)
	if err != nil {
		return nil, err
	}

	rows, err := h.fetch(ctx, coll, params)
	if err != nil {
		return nil, err
	}

	return frame.FromRows(rows, messageColumnOrder()), nil
}

// CheckConnection verifies the account is reachable by requesting the
// authenticated user's profile.
func (h *Handler) CheckConnection(ctx context.Context) error {
	if _, err := h.api.GetProfile(ctx); err != nil {
		h.logger.Error("connection check failed", "error", err)
		return fmt.Errorf("error connecting to the Gmail API: %w", err)
	}
	return nil
}

// Profile returns the authenticated user's profile.
func (h *Handler) Profile(ctx context.Context) (*gmail.Profile, error) {
	return h.api.GetProfile(ctx)
}

// messageColumnOrder is the canonical column order for message frames.
func messageColumnOrder() []string {
	return append([]string{"id", "threadId", "labels", "body"}, filteredMessageHeaders...)
}
