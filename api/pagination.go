// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 100
	PaginationOrderAsc     = "asc"
	PaginationOrderDesc    = "desc"
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams selects one page of an id ordered collection. Page is
// 1-based.
type PaginationParams struct {
	Count uint64
	Page  uint64
	Desc  bool
}

// ParsePagination reads the count, page and order query values. Zero
// values are raised to 1 and count is capped at MaxPaginationCount.
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Count: DefaultPaginationCount,
		Page:  1,
	}
	query := r.URL.Query()
	var err error
	if v := query.Get("count"); v != "" {
		if params.Count, err = strconv.ParseUint(v, 10, 64); err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	if v := query.Get("page"); v != "" {
		if params.Page, err = strconv.ParseUint(v, 10, 64); err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	if v := query.Get("order"); v != "" {
		switch strings.ToLower(v) {
		case PaginationOrderAsc:
		case PaginationOrderDesc:
			params.Desc = true
		default:
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	params.Count = min(max(params.Count, 1), MaxPaginationCount)
	params.Page = max(params.Page, 1)
	return params, nil
}

// Window returns the half-open range of positions covered by the page.
// It is empty when the page is past the end.
func (p PaginationParams) Window(total uint64) (uint64, uint64) {
	// page numbers large enough to overflow are past the end anyway
	if p.Page-1 > total/p.Count {
		return total, total
	}
	start := (p.Page - 1) * p.Count
	if start >= total {
		return total, total
	}
	return start, min(start+p.Count, total)
}

// Index maps a position inside the window to an index into the
// collection, honouring the requested order
func (p PaginationParams) Index(pos uint64, total uint64) uint64 {
	if p.Desc {
		return total - 1 - pos
	}
	return pos
}

// SetPaginationHeaders sets the total item and page count headers
func SetPaginationHeaders(
	w http.ResponseWriter,
	total uint64,
	params PaginationParams,
) {
	count := max(params.Count, 1)
	pages := total / count
	if total%count != 0 {
		pages++
	}
	w.Header().Set("X-Pagination-Count-Total", strconv.FormatUint(total, 10))
	w.Header().Set("X-Pagination-Page-Total", strconv.FormatUint(pages, 10))
}
