package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gmailsql/gmailsql/internal/command"
	"github.com/gmailsql/gmailsql/internal/frame"
	"github.com/gmailsql/gmailsql/internal/gmail"
	"github.com/gmailsql/gmailsql/internal/translate"
)

// QueryRequest carries a SELECT statement.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// NativeRequest carries a free-form method(key=value, ...) command.
type NativeRequest struct {
	Query string `json:"query"`
}

// FrameResponse is the JSON form of a result frame.
type FrameResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// ProfileResponse describes the connected account.
type ProfileResponse struct {
	EmailAddress  string `json:"email_address"`
	MessagesTotal int64  `json:"messages_total"`
	ThreadsTotal  int64  `json:"threads_total"`
	HistoryID     uint64 `json:"history_id"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// frameResponse flattens a frame into the wire shape.
func frameResponse(f *frame.Frame) FrameResponse {
	rows := make([][]any, f.NumRows())
	for i := range rows {
		rows[i] = f.Values(i)
	}
	return FrameResponse{
		Columns: f.Columns(),
		Rows:    rows,
		Count:   f.NumRows(),
	}
}

// isQueryError reports whether err is the caller's fault: a translation,
// parse, or method allow-list rejection raised before any remote call.
func isQueryError(err error) bool {
	var (
		invalidErr  *translate.InvalidQueryError
		clauseErr   *translate.UnsupportedClauseError
		operatorErr *translate.UnsupportedOperatorError
		parseErr    *command.ParseError
		methodErr   *gmail.UnknownCollectionError
	)
	return errors.As(err, &invalidErr) ||
		errors.As(err, &clauseErr) ||
		errors.As(err, &operatorErr) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &methodErr)
}

// handleHealth returns a liveness response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuery executes a SELECT statement.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SQL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be JSON with a non-empty sql field")
		return
	}

	result, err := s.service.Select(r.Context(), req.SQL)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frameResponse(result))
}

// handleNative executes a free-form command.
func (s *Server) handleNative(w http.ResponseWriter, r *http.Request) {
	var req NativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be JSON with a non-empty query field")
		return
	}

	result, err := s.service.NativeQuery(r.Context(), req.Query)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frameResponse(result))
}

// handleProfile returns the connected account's profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.Profile(r.Context())
	if err != nil {
		s.logger.Error("profile request failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "Failed to reach the Gmail API")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		EmailAddress:  profile.EmailAddress,
		MessagesTotal: profile.MessagesTotal,
		ThreadsTotal:  profile.ThreadsTotal,
		HistoryID:     profile.HistoryID,
	})
}

// respondQueryError maps a query failure to a status code: validation
// failures are 400s, anything that reached the remote API is a 502.
func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	if isQueryError(err) {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	s.logger.Error("query failed", "error", err)
	writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
}
