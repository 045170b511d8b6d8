package models

import (
	"maps"
	"time"
)

// KeyPattern describes how stable and unique an external identifier is expected to be.
type KeyPattern string

const (
	KeyPatternLocal     KeyPattern = "LOCAL_KEY"
	KeyPatternRecycled  KeyPattern = "RECYCLED_KEY"
	KeyPatternNatural   KeyPattern = "NATURAL_KEY"
	KeyPatternMirror    KeyPattern = "MIRROR_KEY"
	KeyPatternAggregate KeyPattern = "AGGREGATE_KEY"
	KeyPatternCallers   KeyPattern = "CALLERS_KEY"
	KeyPatternStable    KeyPattern = "STABLE_KEY"
	KeyPatternOther     KeyPattern = "OTHER"
)

func (k KeyPattern) Valid() bool {
	switch k {
	case KeyPatternLocal, KeyPatternRecycled, KeyPatternNatural, KeyPatternMirror,
		KeyPatternAggregate, KeyPatternCallers, KeyPatternStable, KeyPatternOther:
		return true
	}
	return false
}

// SynchronizationDirection says which side is authoritative for an element's content.
type SynchronizationDirection string

const (
	SyncBothDirections SynchronizationDirection = "BOTH_DIRECTIONS"
	SyncToThirdParty   SynchronizationDirection = "TO_THIRD_PARTY"
	SyncFromThirdParty SynchronizationDirection = "FROM_THIRD_PARTY"
	SyncOther          SynchronizationDirection = "OTHER"
)

func (d SynchronizationDirection) Valid() bool {
	switch d {
	case SyncBothDirections, SyncToThirdParty, SyncFromThirdParty, SyncOther:
		return true
	}
	return false
}

// ExternalIdentifier describes how one asset manager refers to one element.
type ExternalIdentifier struct {
	Identifier        string            `json:"identifier"`
	Description       string            `json:"description,omitempty"`
	Usage             string            `json:"usage,omitempty"`
	Source            string            `json:"source,omitempty"`
	KeyPattern        KeyPattern        `json:"key_pattern,omitempty"`
	MappingProperties map[string]string `json:"mapping_properties,omitempty"`
	LastSynchronized  *time.Time        `json:"last_synchronized,omitempty"`
}

// WithDefaults fills the key pattern and drops any caller-supplied sync time.
func (e ExternalIdentifier) WithDefaults() ExternalIdentifier {
	if e.KeyPattern == "" {
		e.KeyPattern = KeyPatternLocal
	}
	e.LastSynchronized = nil
	if e.MappingProperties != nil {
		e.MappingProperties = maps.Clone(e.MappingProperties)
	}
	return e
}
