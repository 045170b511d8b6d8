package models

import (
	"strings"
	"time"
)

// AssetManager is the registration record of an external system whose view of the
// metadata is being synchronized.
type AssetManager struct {
	GUID                       string    `json:"guid" db:"guid"`
	QualifiedName              string    `json:"qualified_name" db:"qualified_name"`
	DisplayName                string    `json:"display_name,omitempty" db:"display_name"`
	Description                string    `json:"description,omitempty" db:"description"`
	DeployedImplementationType string    `json:"deployed_implementation_type,omitempty" db:"deployed_implementation_type"`
	CreatedAt                  time.Time `json:"created_at" db:"created_at"`
}

// Ref returns a reference naming a by GUID and name.
func (a *AssetManager) Ref() AssetManagerRef {
	return AssetManagerRef{GUID: a.GUID, Name: a.QualifiedName}
}

// AssetManagerRef identifies an asset manager by GUID, qualified name or both.
type AssetManagerRef struct {
	GUID string `json:"guid,omitempty"`
	Name string `json:"name,omitempty"`
}

// IsEmpty reports whether neither GUID nor name is set.
func (r AssetManagerRef) IsEmpty() bool {
	return strings.TrimSpace(r.GUID) == "" && strings.TrimSpace(r.Name) == ""
}

func (r AssetManagerRef) String() string {
	switch {
	case r.GUID != "" && r.Name != "":
		return r.Name + " (" + r.GUID + ")"
	case r.GUID != "":
		return r.GUID
	default:
		return r.Name
	}
}

// RegisterAssetManagerRequest is the HTTP body for registering an asset manager.
type RegisterAssetManagerRequest struct {
	QualifiedName              string `json:"qualified_name" validate:"required"`
	DisplayName                string `json:"display_name,omitempty"`
	Description                string `json:"description,omitempty"`
	DeployedImplementationType string `json:"deployed_implementation_type,omitempty"`
}
