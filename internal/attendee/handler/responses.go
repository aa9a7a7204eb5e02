package handler

import (
	"errors"

	"gatepass/internal/attendee/service"
	dErrors "gatepass/pkg/domain-errors"
)

// bulkItemResponse is the per-attendee outcome of a bulk operation.
type bulkItemResponse struct {
	ID      string            `json:"id"`
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type bulkResponse struct {
	Results []bulkItemResponse `json:"results"`
}

func toBulkResponse(results []service.BulkResult) bulkResponse {
	out := bulkResponse{Results: make([]bulkItemResponse, 0, len(results))}
	for _, r := range results {
		item := bulkItemResponse{ID: r.AttendeeID.String(), OK: r.Err == nil}
		if r.Err != nil {
			code := dErrors.CodeOf(r.Err)
			item.Error = string(code)
			if code != dErrors.CodeInternal {
				var de *dErrors.Error
				if errors.As(r.Err, &de) {
					item.Message = de.Message
					item.Details = de.Details
				}
			}
		}
		out.Results = append(out.Results, item)
	}
	return out
}
