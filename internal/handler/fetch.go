package handler

import (
	"context"

	"github.com/gmailsql/gmailsql/internal/frame"
	"github.com/gmailsql/gmailsql/internal/gmail"
)

// maxPageSize is the largest page the messages list endpoint accepts.
const maxPageSize = 500

// fetch drives the list / batch-detail / next-page loop for one query.
//
// When the caller requested a row count (maxResults), the loop keeps an exact
// budget: each page asks for min(remaining, maxPageSize), page items beyond
// the budget are dropped, and pagination continues over nextPageToken until
// the budget is filled. Without a requested count a single page is fetched
// with the server's default size.
//
// Remote errors abort the whole fetch; nothing is returned. Items whose
// detail fetch or payload decoding fails are dropped individually without
// aborting (see processBatch).
func (h *Handler) fetch(ctx context.Context, coll gmail.Collection, params gmail.Params) ([]frame.Row, error) {
	params = params.Clone()
	params["userId"] = "me" // authenticated user

	requested, hasCount := params.Int("maxResults")

	var rows []frame.Row
	for {
		if hasCount {
			left := requested - len(rows)
			if left == 0 {
				break
			}
			if left < 0 {
				// got more results than we need
				rows = rows[:requested]
				break
			}

			if left > maxPageSize {
				params["maxResults"] = maxPageSize
			} else {
				params["maxResults"] = left
			}
		}

		h.logger.Debug("gmail list", "collection", coll, "params", params.Values().Encode())
		page, err := h.api.List(ctx, coll, params)
		if err != nil {
			return nil, err
		}
		h.logger.Debug("gmail page",
			"collection", coll,
			"items", len(page.Items),
			"estimate", page.ResultSizeEstimate,
		)

		items := page.Items
		if hasCount {
			// defend against the server returning more than asked
			if left := requested - len(rows); len(items) > left {
				items = items[:left]
			}
		}

		if coll == gmail.CollectionMessages && len(items) > 0 {
			batch, err := h.processBatch(ctx, items)
			if err != nil {
				return nil, err
			}
			rows = append(rows, batch...)
		} else {
			for _, item := range items {
				rows = append(rows, frame.Row(item.Fields))
			}
		}

		if hasCount && page.NextPageToken != "" {
			params["pageToken"] = page.NextPageToken
		} else {
			break
		}
	}

	return rows, nil
}

// processBatch hydrates page items through one batched detail fetch and
// assembles a row per successful result. A failed item is logged and
// dropped; one bad message must not abort the whole query.
func (h *Handler) processBatch(ctx context.Context, items []gmail.ListItem) ([]frame.Row, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	results, err := h.api.GetMessageBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]frame.Row, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			h.logger.Warn("dropping message", "id", res.ID, "error", res.Err)
			continue
		}
		row, err := assembleRow(res.Message)
		if err != nil {
			h.logger.Warn("dropping message", "id", res.ID, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
