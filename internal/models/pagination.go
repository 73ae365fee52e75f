package models

import (
	"encoding/json"
	"math"
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// NewPagination clamps page and perPage to sane bounds. Page is capped so the
// offset never overflows; such a page is simply past the end.
func NewPagination(page, perPage, defaultPerPage, maxPerPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Limit() int { return p.PerPage }

func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// LastPage is the number of the last non-empty page, at least 1.
func (p Pagination) LastPage() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// MarshalJSON adds the derived last_page to the wire form.
func (p Pagination) MarshalJSON() ([]byte, error) {
	type plain Pagination
	return json.Marshal(struct {
		plain
		LastPage int `json:"last_page"`
	}{plain(p), p.LastPage()})
}
