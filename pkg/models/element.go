package models

import (
	"maps"
	"strings"
	"time"
)

const (
	PropertyQualifiedName = "qualifiedName"
	PropertyDisplayName   = "displayName"
	PropertyDescription   = "description"
)

// ElementStatus is the lifecycle status of an element.
type ElementStatus string

const (
	ElementStatusDraft    ElementStatus = "DRAFT"
	ElementStatusActive   ElementStatus = "ACTIVE"
	ElementStatusDeleted  ElementStatus = "DELETED"
	ElementStatusArchived ElementStatus = "ARCHIVED"
)

func (s ElementStatus) Valid() bool {
	switch s {
	case ElementStatusDraft, ElementStatusActive, ElementStatusDeleted, ElementStatusArchived:
		return true
	}
	return false
}

// Element is a metadata element owned by the local repository.
type Element struct {
	GUID            string            `json:"guid" db:"guid"`
	TypeName        string            `json:"type_name" db:"type_name"`
	Properties      ElementProperties `json:"properties" db:"-"`
	Classifications []Classification  `json:"classifications,omitempty" db:"-"`
	AnchorGUID      *string           `json:"anchor_guid,omitempty" db:"anchor_guid"`
	Status          ElementStatus     `json:"status" db:"status"`
	Version         int               `json:"version" db:"version"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// IsEffectiveAt reports whether the element's effectivity window covers t.
// A nil t means "now, without filtering".
func (e *Element) IsEffectiveAt(t *time.Time) bool {
	return e.Properties.IsEffectiveAt(t)
}

// Classification is a named tag with properties attached to an element.
type Classification struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ElementProperties is the generic property bag every element type shares.
type ElementProperties struct {
	QualifiedName        string            `json:"qualified_name,omitempty"`
	DisplayName          string            `json:"display_name,omitempty"`
	Description          string            `json:"description,omitempty"`
	AdditionalProperties map[string]string `json:"additional_properties,omitempty"`
	ExtendedProperties   map[string]any    `json:"extended_properties,omitempty"`
	EffectiveFrom        *time.Time        `json:"effective_from,omitempty"`
	EffectiveTo          *time.Time        `json:"effective_to,omitempty"`
}

// Value returns the string value of a named property. The core names map to their
// fields; anything else is looked up in the additional, then extended properties.
func (p ElementProperties) Value(name string) string {
	switch name {
	case "", PropertyQualifiedName:
		return p.QualifiedName
	case PropertyDisplayName:
		return p.DisplayName
	case PropertyDescription:
		return p.Description
	}
	if v, ok := p.AdditionalProperties[name]; ok {
		return v
	}
	if v, ok := p.ExtendedProperties[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// HasValue reports whether the named property is set to a non-blank value.
func (p ElementProperties) HasValue(name string) bool {
	return strings.TrimSpace(p.Value(name)) != ""
}

// Merge returns p overlaid with every field that is set in update. Maps are merged
// key by key, so unspecified keys are kept.
func (p ElementProperties) Merge(update ElementProperties) ElementProperties {
	merged := p.Clone()
	if update.QualifiedName != "" {
		merged.QualifiedName = update.QualifiedName
	}
	if update.DisplayName != "" {
		merged.DisplayName = update.DisplayName
	}
	if update.Description != "" {
		merged.Description = update.Description
	}
	if len(update.AdditionalProperties) > 0 {
		if merged.AdditionalProperties == nil {
			merged.AdditionalProperties = map[string]string{}
		}
		maps.Copy(merged.AdditionalProperties, update.AdditionalProperties)
	}
	if len(update.ExtendedProperties) > 0 {
		if merged.ExtendedProperties == nil {
			merged.ExtendedProperties = map[string]any{}
		}
		maps.Copy(merged.ExtendedProperties, update.ExtendedProperties)
	}
	if update.EffectiveFrom != nil {
		merged.EffectiveFrom = update.EffectiveFrom
	}
	if update.EffectiveTo != nil {
		merged.EffectiveTo = update.EffectiveTo
	}
	return merged
}

// Clone returns a deep copy of p.
func (p ElementProperties) Clone() ElementProperties {
	c := p
	if p.AdditionalProperties != nil {
		c.AdditionalProperties = maps.Clone(p.AdditionalProperties)
	}
	if p.ExtendedProperties != nil {
		c.ExtendedProperties = maps.Clone(p.ExtendedProperties)
	}
	return c
}

func (p ElementProperties) IsEffectiveAt(t *time.Time) bool {
	if t == nil {
		return true
	}
	if p.EffectiveFrom != nil && t.Before(*p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo != nil && !t.Before(*p.EffectiveTo) {
		return false
	}
	return true
}

// CreateElementRequest is the HTTP body for creating an element, optionally correlated.
type CreateElementRequest struct {
	Properties      ElementProperties   `json:"properties"`
	Classifications []Classification    `json:"classifications,omitempty"`
	Correlation     *CorrelationRequest `json:"correlation,omitempty"`
	Options         RequestOptions      `json:"options"`
}

// UpdateElementRequest is the HTTP body for PATCH (merge) and PUT (replace).
type UpdateElementRequest struct {
	Properties  ElementProperties   `json:"properties"`
	Correlation *CorrelationRequest `json:"correlation,omitempty"`
	Options     RequestOptions      `json:"options"`
}

// RemoveElementRequest is the HTTP body for removing an element.
type RemoveElementRequest struct {
	Correlation *CorrelationRequest `json:"correlation,omitempty"`
	Options     RequestOptions      `json:"options"`
}

type ElementGUIDResponse struct {
	GUID string `json:"guid"`
}

type ElementListResponse struct {
	Items     []Element `json:"items"`
	StartFrom int       `json:"start_from"`
	PageSize  int       `json:"page_size"`
}
