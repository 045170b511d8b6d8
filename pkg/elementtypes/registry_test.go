package elementtypes

import (
	"strings"
	"testing"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()

	conn, ok := r.Type(TypeConnection)
	require.True(t, ok)
	assert.Equal(t, models.PropertyQualifiedName, conn.RequiredProperty)
	assert.Equal(t, "connection", conn.Family)

	assert.True(t, r.IsA(TypeVirtualConnection, TypeConnection))
	assert.True(t, r.IsA(TypeComplexSchemaType, TypeReferenceable))
	assert.False(t, r.IsA(TypeConnection, TypeVirtualConnection))
	assert.Equal(t, models.PropertyQualifiedName, r.RequiredProperty("NoSuchType"))
}

func TestRegistry_TemplateCompatible(t *testing.T) {
	r := Default()

	assert.True(t, r.TemplateCompatible(TypeConnection, TypeConnection))
	assert.True(t, r.TemplateCompatible(TypeVirtualConnection, TypeConnection))
	assert.True(t, r.TemplateCompatible(TypeConnection, TypeVirtualConnection))
	assert.False(t, r.TemplateCompatible(TypeEndpoint, TypeConnection))
}

func TestRegistry_CheckEnds(t *testing.T) {
	r := Default()

	assert.NoError(t, r.CheckEnds(RelConnectionConnectorType, TypeConnection, TypeConnectorType))
	assert.NoError(t, r.CheckEnds(RelConnectionConnectorType, TypeVirtualConnection, TypeConnectorType))
	assert.Error(t, r.CheckEnds(RelConnectionConnectorType, TypeEndpoint, TypeConnectorType))
	assert.Error(t, r.CheckEnds(RelValidValueMember, TypeValidValuesSet, TypeConnection))
	assert.NoError(t, r.CheckEnds("CustomLink", TypeEndpoint, TypeAsset))

	rel, ok := r.Relationship(RelAttributeForSchema)
	require.True(t, ok)
	assert.True(t, rel.Anchors)
}

func TestLoad(t *testing.T) {
	doc := `
types:
  - name: Database
    superType: Asset
    requiredProperty: networkAddress
  - name: Connection
    superType: Referenceable
    requiredProperty: displayName
relationships:
  - name: DatabaseConnection
    endOneType: Connection
    endTwoType: Database
`
	r, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	db, ok := r.Type("Database")
	require.True(t, ok)
	assert.Equal(t, "networkAddress", db.RequiredProperty)
	assert.True(t, r.IsA("Database", TypeAsset))
	assert.Equal(t, models.PropertyDisplayName, r.RequiredProperty(TypeConnection))
	assert.NoError(t, r.CheckEnds("DatabaseConnection", TypeVirtualConnection, "Database"))

	// the defaults are not shared between registries
	assert.Equal(t, models.PropertyQualifiedName, Default().RequiredProperty(TypeConnection))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "types:\n  - name: X\n    colour: red\n"},
		{name: "unknown supertype", doc: "types:\n  - name: X\n    superType: Nope\n"},
		{name: "unknown end", doc: "relationships:\n  - name: R\n    endOneType: Nope\n"},
		{name: "cycle", doc: "types:\n  - name: A\n    superType: B\n  - name: B\n    superType: A\n"},
		{name: "empty name", doc: "types:\n  - superType: Asset\n"},
		{name: "name taken by the find route", doc: "types:\n  - name: find\n"},
		{name: "name with a slash", doc: "types:\n  - name: a/b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_EmptyPath(t *testing.T) {
	r, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, r.Types(), len(defaultTypes()))
	assert.Len(t, r.Relationships(), len(defaultRelationships()))
}
