package models

import "time"

// Relationship is a typed link between two elements. When HomeAssetManagerGUID is set
// only that asset manager may detach it.
type Relationship struct {
	GUID                 string         `json:"guid" db:"guid"`
	TypeName             string         `json:"type_name" db:"type_name"`
	EndOneGUID           string         `json:"end_one_guid" db:"end_one_guid"`
	EndTwoGUID           string         `json:"end_two_guid" db:"end_two_guid"`
	Properties           map[string]any `json:"properties,omitempty" db:"-"`
	HomeAssetManagerGUID *string        `json:"home_asset_manager_guid,omitempty" db:"home_asset_manager_guid"`
	EffectiveFrom        *time.Time     `json:"effective_from,omitempty" db:"effective_from"`
	EffectiveTo          *time.Time     `json:"effective_to,omitempty" db:"effective_to"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}

func (r *Relationship) IsEffectiveAt(t *time.Time) bool {
	if t == nil {
		return true
	}
	if r.EffectiveFrom != nil && t.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !t.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Involves reports whether guid is either end of the relationship.
func (r *Relationship) Involves(guid string) bool {
	return r.EndOneGUID == guid || r.EndTwoGUID == guid
}

// AttachRelationshipRequest is the HTTP body for linking two elements.
type AttachRelationshipRequest struct {
	TypeName    string              `json:"type_name" validate:"required"`
	EndOneGUID  string              `json:"end_one_guid" validate:"required"`
	EndTwoGUID  string              `json:"end_two_guid" validate:"required"`
	Properties  map[string]any      `json:"properties,omitempty"`
	Correlation *CorrelationRequest `json:"correlation,omitempty"`
	Options     RequestOptions      `json:"options"`
}

// DetachRelationshipRequest is the HTTP body for unlinking two elements.
type DetachRelationshipRequest struct {
	TypeName    string              `json:"type_name" validate:"required"`
	EndOneGUID  string              `json:"end_one_guid" validate:"required"`
	EndTwoGUID  string              `json:"end_two_guid" validate:"required"`
	Correlation *CorrelationRequest `json:"correlation,omitempty"`
	Options     RequestOptions      `json:"options"`
}

type RelationshipGUIDResponse struct {
	GUID string `json:"guid"`
}

type RelationshipListResponse struct {
	Items []Relationship `json:"items"`
}
