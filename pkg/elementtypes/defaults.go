package elementtypes

import "fmt"

const (
	TypeReferenceable        = "Referenceable"
	TypeConnection           = "Connection"
	TypeVirtualConnection    = "VirtualConnection"
	TypeConnectorType        = "ConnectorType"
	TypeEndpoint             = "Endpoint"
	TypeAsset                = "Asset"
	TypeSchemaElement        = "SchemaElement"
	TypeSchemaType           = "SchemaType"
	TypeComplexSchemaType    = "ComplexSchemaType"
	TypeSchemaAttribute      = "SchemaAttribute"
	TypeValidValueDefinition = "ValidValueDefinition"
	TypeValidValuesSet       = "ValidValuesSet"
	TypeExternalReference    = "ExternalReference"
	TypeGovernanceDefinition = "GovernanceDefinition"
	TypeAssetManager         = "SoftwareCapability"
)

const (
	RelConnectionConnectorType  = "ConnectionConnectorType"
	RelConnectionEndpoint       = "ConnectionEndpoint"
	RelEmbeddedConnection       = "EmbeddedConnection"
	RelConnectionToAsset        = "ConnectionToAsset"
	RelAssetSchemaType          = "AssetSchemaType"
	RelAttributeForSchema       = "AttributeForSchema"
	RelNestedSchemaAttribute    = "NestedSchemaAttribute"
	RelForeignKey               = "ForeignKey"
	RelValidValueMember         = "ValidValueMember"
	RelReferenceValueAssignment = "ReferenceValueAssignment"
	RelExternalReferenceLink    = "ExternalReferenceLink"
	RelGovernedBy               = "GovernedBy"
)

func defaultTypes() []TypeDef {
	return []TypeDef{
		{Name: TypeReferenceable, Family: TypeReferenceable},
		{Name: TypeConnection, SuperType: TypeReferenceable, Family: "connection"},
		{Name: TypeVirtualConnection, SuperType: TypeConnection, Family: "connection"},
		{Name: TypeConnectorType, SuperType: TypeReferenceable, Family: "connection"},
		{Name: TypeEndpoint, SuperType: TypeReferenceable, Family: "connection"},
		{Name: TypeAsset, SuperType: TypeReferenceable, Family: "asset"},
		{Name: TypeSchemaElement, SuperType: TypeReferenceable, Family: "schema"},
		{Name: TypeSchemaType, SuperType: TypeSchemaElement, Family: "schema", Anchored: true},
		{Name: TypeComplexSchemaType, SuperType: TypeSchemaType, Family: "schema", Anchored: true},
		{Name: TypeSchemaAttribute, SuperType: TypeSchemaElement, Family: "schema", Anchored: true},
		{Name: TypeValidValueDefinition, SuperType: TypeReferenceable, Family: "validvalues"},
		{Name: TypeValidValuesSet, SuperType: TypeValidValueDefinition, Family: "validvalues"},
		{Name: TypeExternalReference, SuperType: TypeReferenceable, Family: "externalreference"},
		{Name: TypeGovernanceDefinition, SuperType: TypeReferenceable, Family: "governance"},
		{Name: TypeAssetManager, SuperType: TypeReferenceable, Family: "assetmanager"},
	}
}

func defaultRelationships() []RelationshipDef {
	return []RelationshipDef{
		{Name: RelConnectionConnectorType, EndOneType: TypeConnection, EndTwoType: TypeConnectorType},
		{Name: RelConnectionEndpoint, EndOneType: TypeEndpoint, EndTwoType: TypeConnection},
		{Name: RelEmbeddedConnection, EndOneType: TypeVirtualConnection, EndTwoType: TypeConnection},
		{Name: RelConnectionToAsset, EndOneType: TypeConnection, EndTwoType: TypeAsset},
		{Name: RelAssetSchemaType, EndOneType: TypeAsset, EndTwoType: TypeSchemaType, Anchors: true},
		{Name: RelAttributeForSchema, EndOneType: TypeComplexSchemaType, EndTwoType: TypeSchemaAttribute, Anchors: true},
		{Name: RelNestedSchemaAttribute, EndOneType: TypeSchemaAttribute, EndTwoType: TypeSchemaAttribute, Anchors: true},
		{Name: RelForeignKey, EndOneType: TypeSchemaAttribute, EndTwoType: TypeSchemaAttribute},
		{Name: RelValidValueMember, EndOneType: TypeValidValuesSet, EndTwoType: TypeValidValueDefinition},
		{Name: RelReferenceValueAssignment, EndOneType: TypeReferenceable, EndTwoType: TypeValidValueDefinition},
		{Name: RelExternalReferenceLink, EndOneType: TypeReferenceable, EndTwoType: TypeExternalReference},
		{Name: RelGovernedBy, EndOneType: TypeGovernanceDefinition, EndTwoType: TypeReferenceable},
	}
}

// Default returns a fresh registry holding the built-in types.
func Default() *Registry {
	r, err := New(defaultTypes(), defaultRelationships())
	if err != nil {
		panic(fmt.Sprintf("elementtypes: invalid defaults: %v", err))
	}
	return r
}
