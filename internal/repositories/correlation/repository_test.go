package correlation

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestBuildFindByIdentifier(t *testing.T) {
	query, args := buildFindByIdentifier("am-1", "tbl-42")

	assert.Contains(t, query, "FROM correlations")
	assert.Contains(t, query, "asset_manager_guid = $1 AND identifier = $2")
	assert.Contains(t, query, "ORDER BY created_at, element_guid, asset_manager_guid ASC")
	assert.Equal(t, []any{"am-1", "tbl-42"}, args)
}

func TestRowToModel(t *testing.T) {
	rw := row{CorrelationRecord: models.CorrelationRecord{ElementGUID: "guid-1", AssetManagerGUID: "am-1"}}
	rw.Identifier.Data = models.ExternalIdentifier{Identifier: "tbl-42", KeyPattern: models.KeyPatternLocal}

	record := rw.toModel()

	assert.Equal(t, "tbl-42", record.ExternalIdentifier.Identifier)
	assert.Equal(t, "am-1", record.AssetManagerGUID)
}

func TestCompareRecords(t *testing.T) {
	t0 := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	records := []models.CorrelationRecord{
		{ElementGUID: "b", AssetManagerGUID: "am-1", CreatedAt: t0},
		{ElementGUID: "a", AssetManagerGUID: "am-2", CreatedAt: t0},
		{ElementGUID: "a", AssetManagerGUID: "am-1", CreatedAt: t0},
		{ElementGUID: "z", AssetManagerGUID: "am-1", CreatedAt: t0.Add(-time.Minute)},
	}

	slices.SortFunc(records, compareRecords)

	var order []string
	for _, r := range records {
		order = append(order, r.ElementGUID+"/"+r.AssetManagerGUID)
	}
	assert.Equal(t, []string{"z/am-1", "a/am-1", "a/am-2", "b/am-1"}, order)
}
