package types

import (
	ierr "github.com/brfledger/utilitybilling/internal/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// QueryFilter carries pagination for list endpoints
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Status *string `json:"status,omitempty" form:"status"`
}

func NewDefaultQueryFilter() *QueryFilter {
	limit := DefaultLimit
	offset := 0
	return &QueryFilter{Limit: &limit, Offset: &offset}
}

// NewNoLimitQueryFilter returns a filter that lists everything
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{}
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > MaxLimit) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", MaxLimit).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f *QueryFilter) IsUnlimited() bool {
	return f == nil || f.Limit == nil
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return 0
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

// PaginationResponse is embedded in list responses
type PaginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResponse is a generic paginated list
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// Paginate slices items according to the filter
func Paginate[T any](items []T, f *QueryFilter) []T {
	if f.IsUnlimited() {
		return items
	}
	start := f.GetOffset()
	if start >= len(items) {
		return []T{}
	}
	end := start + f.GetLimit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
