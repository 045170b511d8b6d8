package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialGUIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestStore() *Store {
	s := New()
	s.SetGUIDGenerator(sequentialGUIDs("g"))
	return s
}

func TestElementStore_DeleteCascadesToAnchoredElements(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	elements := s.Elements()
	correlations := s.Correlations()
	rels := s.Relationships()

	parent, err := elements.Create(ctx, &models.Element{TypeName: "ComplexSchemaType", Properties: models.ElementProperties{QualifiedName: "schema"}}, models.RequestOptions{})
	require.NoError(t, err)
	child, err := elements.Create(ctx, &models.Element{TypeName: "SchemaAttribute", Properties: models.ElementProperties{QualifiedName: "schema.id"}}, models.RequestOptions{})
	require.NoError(t, err)
	grandchild, err := elements.Create(ctx, &models.Element{TypeName: "SchemaAttribute", Properties: models.ElementProperties{QualifiedName: "schema.id.part"}}, models.RequestOptions{})
	require.NoError(t, err)
	other, err := elements.Create(ctx, &models.Element{TypeName: "Connection", Properties: models.ElementProperties{QualifiedName: "conn"}}, models.RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, elements.SetAnchor(ctx, child.GUID, &parent.GUID))
	require.NoError(t, elements.SetAnchor(ctx, grandchild.GUID, &child.GUID))
	require.NoError(t, correlations.Attach(ctx, &models.CorrelationRecord{ElementGUID: child.GUID, AssetManagerGUID: "am-1"}))
	_, err = rels.Relate(ctx, &models.Relationship{TypeName: "ForeignKey", EndOneGUID: grandchild.GUID, EndTwoGUID: other.GUID}, models.RequestOptions{})
	require.NoError(t, err)

	removed, err := elements.Delete(ctx, parent.GUID, models.RequestOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.GUID, child.GUID, grandchild.GUID}, removed)

	_, err = elements.Get(ctx, grandchild.GUID, models.RequestOptions{})
	assert.Equal(t, 404, httperror.GetStatusCode(err))

	record, err := correlations.Lookup(ctx, child.GUID, "am-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	remaining, err := rels.List(ctx, other.GUID, models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = elements.Get(ctx, other.GUID, models.RequestOptions{})
	assert.NoError(t, err)
}

func TestElementStore_UpdateMergeAndReplace(t *testing.T) {
	ctx := context.Background()
	elements := newTestStore().Elements()

	created, err := elements.Create(ctx, &models.Element{TypeName: "Connection", Properties: models.ElementProperties{
		QualifiedName: "conn.1",
		Description:   "primary",
	}}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)

	merged, err := elements.Update(ctx, created.GUID, false, models.ElementProperties{DisplayName: "Conn"}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "primary", merged.Properties.Description)
	assert.Equal(t, 2, merged.Version)

	replaced, err := elements.Update(ctx, created.GUID, true, models.ElementProperties{QualifiedName: "conn.1"}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, replaced.Properties.Description)
	assert.Empty(t, replaced.Properties.DisplayName)
	assert.Equal(t, 3, replaced.Version)
}

func TestElementStore_FindPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	elements := newTestStore().Elements()

	for i := range 5 {
		_, err := elements.Create(ctx, &models.Element{TypeName: "Endpoint", Properties: models.ElementProperties{
			QualifiedName: fmt.Sprintf("endpoint.%d", i),
			DisplayName:   "Endpoint",
		}}, models.RequestOptions{})
		require.NoError(t, err)
	}
	_, err := elements.Create(ctx, &models.Element{TypeName: "Endpoint", Status: models.ElementStatusArchived, Properties: models.ElementProperties{
		QualifiedName: "endpoint.old",
	}}, models.RequestOptions{})
	require.NoError(t, err)

	got, err := elements.Find(ctx, models.SearchCriteria{TypeName: "Endpoint"}, models.Paging{StartFrom: 1, PageSize: 2}, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "endpoint.1", got[0].Properties.QualifiedName)
	assert.Equal(t, "endpoint.2", got[1].Properties.QualifiedName)

	all, err := elements.Find(ctx, models.SearchCriteria{SearchString: "ENDPOINT."}, models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	withLineage, err := elements.Find(ctx, models.SearchCriteria{SearchString: "endpoint."}, models.Paging{}, models.RequestOptions{ForLineage: true})
	require.NoError(t, err)
	assert.Len(t, withLineage, 6)

	byName, err := elements.Find(ctx, models.SearchCriteria{Name: "endpoint.3"}, models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	beyond, err := elements.Find(ctx, models.SearchCriteria{}, models.Paging{StartFrom: 50, PageSize: 10}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestCorrelationStore_AttachIsUniquePerPair(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	element, err := s.Elements().Create(ctx, &models.Element{TypeName: "Connection", Properties: models.ElementProperties{QualifiedName: "c"}}, models.RequestOptions{})
	require.NoError(t, err)

	correlations := s.Correlations()
	record := &models.CorrelationRecord{
		ElementGUID:        element.GUID,
		AssetManagerGUID:   "am-1",
		ExternalIdentifier: models.ExternalIdentifier{Identifier: "EXT-1"},
	}
	require.NoError(t, correlations.Attach(ctx, record))

	err = correlations.Attach(ctx, record)
	assert.Equal(t, 409, httperror.GetStatusCode(err))

	found, err := correlations.FindByIdentifier(ctx, "am-1", "EXT-1")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err := correlations.DetachAssetManager(ctx, "am-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, correlations.Detach(ctx, element.GUID, "am-1"))
}

func TestAssetManagerStore(t *testing.T) {
	ctx := context.Background()
	ams := newTestStore().AssetManagers()

	am, err := ams.Create(ctx, &models.AssetManager{QualifiedName: "CatalogX"})
	require.NoError(t, err)
	assert.Equal(t, "g-1", am.GUID)

	_, err = ams.Create(ctx, &models.AssetManager{QualifiedName: "CatalogX"})
	assert.Equal(t, 409, httperror.GetStatusCode(err))

	byName, err := ams.GetByName(ctx, "CatalogX")
	require.NoError(t, err)
	assert.Equal(t, am.GUID, byName.GUID)

	missing, err := ams.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
