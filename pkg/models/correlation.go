package models

import (
	"strings"
	"time"
)

// CorrelationRecord links one element, one asset manager and that asset manager's
// identifier for the element. There is at most one per (element, asset manager).
type CorrelationRecord struct {
	ElementGUID                string                   `json:"element_guid" db:"element_guid"`
	ElementType                string                   `json:"element_type" db:"element_type"`
	AssetManagerGUID           string                   `json:"asset_manager_guid" db:"asset_manager_guid"`
	AssetManagerName           string                   `json:"asset_manager_name" db:"asset_manager_name"`
	ExternalIdentifier         ExternalIdentifier       `json:"external_identifier" db:"-"`
	SynchronizationDirection   SynchronizationDirection `json:"synchronization_direction" db:"synchronization_direction"`
	SynchronizationDescription string                   `json:"synchronization_description,omitempty" db:"synchronization_description"`
	AssetManagerIsHome         bool                     `json:"asset_manager_is_home" db:"asset_manager_is_home"`
	LastKnownVersion           int                      `json:"last_known_version" db:"last_known_version"`
	CreatedAt                  time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time                `json:"updated_at" db:"updated_at"`
}

// Correlation states whether an operation is made on behalf of an asset manager.
// The zero value is NoCorrelation.
type Correlation struct {
	ref        *AssetManagerRef
	identifier *ExternalIdentifier
	home       bool
}

// NoCorrelation is the local-only variant.
func NoCorrelation() Correlation {
	return Correlation{}
}

// Correlate builds a correlation for the given asset manager. A nil identifier means
// the record is attached with an empty identifier.
func Correlate(ref AssetManagerRef, identifier *ExternalIdentifier) Correlation {
	c := Correlation{ref: &ref}
	if identifier != nil {
		id := *identifier
		c.identifier = &id
	}
	return c
}

// AsHome marks the asset manager as authoritative for the element's content.
func (c Correlation) AsHome() Correlation {
	c.home = true
	return c
}

// IsCorrelated reports whether an asset manager is named.
func (c Correlation) IsCorrelated() bool {
	return c.ref != nil
}

func (c Correlation) IsHome() bool {
	return c.ref != nil && c.home
}

// AssetManager returns the named asset manager, if any.
func (c Correlation) AssetManager() (AssetManagerRef, bool) {
	if c.ref == nil {
		return AssetManagerRef{}, false
	}
	return *c.ref, true
}

// ExternalIdentifier returns a copy of the supplied identifier, or nil.
func (c Correlation) ExternalIdentifier() *ExternalIdentifier {
	if c.identifier == nil {
		return nil
	}
	id := *c.identifier
	return &id
}

// Identifier returns the supplied identifier value, or "" when none was supplied.
func (c Correlation) Identifier() string {
	if c.identifier == nil {
		return ""
	}
	return strings.TrimSpace(c.identifier.Identifier)
}

// Direction is the synchronization direction implied by the home flag.
func (c Correlation) Direction() SynchronizationDirection {
	if c.home {
		return SyncFromThirdParty
	}
	return SyncBothDirections
}

// Request converts the correlation back to its wire form; nil for NoCorrelation.
func (c Correlation) Request() *CorrelationRequest {
	if c.ref == nil {
		return nil
	}
	return &CorrelationRequest{
		AssetManagerGUID:   c.ref.GUID,
		AssetManagerName:   c.ref.Name,
		ExternalIdentifier: c.ExternalIdentifier(),
		AssetManagerIsHome: c.home,
	}
}

// CorrelationRequest is the wire form of a Correlation.
type CorrelationRequest struct {
	AssetManagerGUID   string              `json:"asset_manager_guid,omitempty"`
	AssetManagerName   string              `json:"asset_manager_name,omitempty"`
	ExternalIdentifier *ExternalIdentifier `json:"external_identifier,omitempty"`
	AssetManagerIsHome bool                `json:"asset_manager_is_home,omitempty"`
}

// Correlation converts the wire form. A nil request, or one naming no asset manager,
// is NoCorrelation.
func (r *CorrelationRequest) Correlation() Correlation {
	if r == nil {
		return NoCorrelation()
	}
	ref := AssetManagerRef{GUID: strings.TrimSpace(r.AssetManagerGUID), Name: strings.TrimSpace(r.AssetManagerName)}
	if ref.IsEmpty() {
		return NoCorrelation()
	}
	c := Correlate(ref, r.ExternalIdentifier)
	if r.AssetManagerIsHome {
		c = c.AsHome()
	}
	return c
}

// ReconcileRequest is the HTTP body for overwriting a stored identifier.
type ReconcileRequest struct {
	ExternalIdentifier ExternalIdentifier `json:"external_identifier"`
}

type CorrelationListResponse struct {
	Items []CorrelationRecord `json:"items"`
}

// CorrelationLookupResponse carries a nil Record when the element is not correlated
// with the asset manager.
type CorrelationLookupResponse struct {
	Record *CorrelationRecord `json:"record"`
}
