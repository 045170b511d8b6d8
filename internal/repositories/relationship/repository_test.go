package relationship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestBuildList(t *testing.T) {
	query, args := buildList("guid-1", models.Paging{StartFrom: 5, PageSize: 10}, models.RequestOptions{})

	assert.Contains(t, query, "FROM relationships")
	assert.Contains(t, query, "(end_one_guid = $1 OR end_two_guid = $2)")
	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, query, "OFFSET")
	assert.Equal(t, []any{"guid-1", "guid-1"}, args[:2])
}

func TestBuildListEffectiveTime(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	query, args := buildList("guid-1", models.Paging{}, models.RequestOptions{EffectiveTime: &at})

	assert.Contains(t, query, "effective_from <= $3")
	assert.Contains(t, query, "effective_to > $4")
	assert.Len(t, args, 4)
}
