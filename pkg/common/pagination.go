package common

import (
	"net/http"
	"strconv"
)

// PageRequest represents list pagination parameters as they arrive on the
// wire. Values are extracted as-is; domain policies decide the effective
// bounds.
type PageRequest struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Cursor string `json:"cursor,omitempty"`
	Sort   string `json:"sort,omitempty"`
	Order  string `json:"order,omitempty"`
}

// DefaultPageRequest returns default pagination parameters
func DefaultPageRequest() PageRequest {
	return PageRequest{
		Limit:  50,
		Offset: 0,
		Order:  "desc",
	}
}

// ExtractPageRequest extracts pagination parameters from request
func ExtractPageRequest(r *http.Request) PageRequest {
	params := DefaultPageRequest()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			params.Limit = l
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			params.Offset = o
		}
	}

	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		params.Cursor = cursor
	}

	if sort := r.URL.Query().Get("sort"); sort != "" {
		params.Sort = sort
	}

	if order := r.URL.Query().Get("order"); order != "" {
		if order == "asc" || order == "desc" {
			params.Order = order
		}
	}

	return params
}

// PageInfo contains pagination details for responses
type PageInfo struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	Total      int    `json:"total"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// BuildPageInfo builds pagination metadata for offset-based listings
func BuildPageInfo(limit, offset, total int) *PageInfo {
	return &PageInfo{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: offset+limit < total,
	}
}

// BuildCursorPageInfo builds pagination metadata for cursor-based listings
// where the total is unknown
func BuildCursorPageInfo(limit int, nextCursor string) *PageInfo {
	return &PageInfo{
		Limit:      limit,
		HasMore:    nextCursor != "",
		NextCursor: nextCursor,
	}
}

// PaginatedResult represents a paginated result
type PaginatedResult struct {
	Items      interface{} `json:"items"`
	Pagination *PageInfo   `json:"pagination"`
}

// NewPaginatedResult creates a new paginated result
func NewPaginatedResult(items interface{}, limit, offset, total int) *PaginatedResult {
	return &PaginatedResult{
		Items:      items,
		Pagination: BuildPageInfo(limit, offset, total),
	}
}
