package models

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
)

const DefaultMaxPageSize = 1000

// RequestOptions are passed through to the stores unchanged.
type RequestOptions struct {
	EffectiveTime          *time.Time `json:"effective_time,omitempty"`
	ForLineage             bool       `json:"for_lineage,omitempty"`
	ForDuplicateProcessing bool       `json:"for_duplicate_processing,omitempty"`
}

// Paging selects a page of results. A zero PageSize asks for the maximum.
type Paging struct {
	StartFrom int `json:"start_from" query:"start_from"`
	PageSize  int `json:"page_size" query:"page_size"`
}

// Validate checks the bounds against max and returns the paging with a zero page size
// replaced by max.
func (p Paging) Validate(method string, max int) (Paging, error) {
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	if p.StartFrom < 0 {
		return p, errors.InvalidParameter(method, "startFrom must not be negative, got %d", p.StartFrom).
			AddMetaValue("start_from", p.StartFrom)
	}
	if p.PageSize < 0 {
		return p, errors.InvalidParameter(method, "pageSize must not be negative, got %d", p.PageSize).
			AddMetaValue("page_size", p.PageSize)
	}
	if p.PageSize > max {
		return p, errors.InvalidParameter(method, "pageSize %d exceeds the maximum of %d", p.PageSize, max).
			AddMetaValue("page_size", p.PageSize).
			AddMetaValue("max_page_size", max)
	}
	if p.PageSize == 0 {
		p.PageSize = max
	}
	return p, nil
}

// SearchCriteria narrows a find. Empty fields match everything. SearchString is a
// case-insensitive substring match on qualified name, display name and description;
// Filter is a JMESPath expression evaluated against the element.
type SearchCriteria struct {
	TypeName string `json:"type_name,omitempty"`
	// Name matches the qualified name or the display name exactly.
	Name          string `json:"name,omitempty"`
	QualifiedName string `json:"qualified_name,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	SearchString  string `json:"search_string,omitempty"`
	Filter        string `json:"filter,omitempty"`
}

// FindElementsRequest is the HTTP body for POST /elements/find.
type FindElementsRequest struct {
	Criteria SearchCriteria `json:"criteria"`
	Paging   Paging         `json:"paging"`
	Options  RequestOptions `json:"options"`
}
