package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelation_ZeroValueIsNoCorrelation(t *testing.T) {
	var c Correlation
	assert.False(t, c.IsCorrelated())
	assert.False(t, c.AsHome().IsHome())
	assert.Nil(t, c.Request())

	_, ok := c.AssetManager()
	assert.False(t, ok)
}

func TestCorrelate(t *testing.T) {
	id := &ExternalIdentifier{Identifier: " EXT-001 "}
	c := Correlate(AssetManagerRef{GUID: "am-1"}, id).AsHome()

	id.Identifier = "changed"

	require.True(t, c.IsCorrelated())
	assert.True(t, c.IsHome())
	assert.Equal(t, "EXT-001", c.Identifier())
	assert.Equal(t, SyncFromThirdParty, c.Direction())

	ref, ok := c.AssetManager()
	require.True(t, ok)
	assert.Equal(t, "am-1", ref.GUID)
}

func TestCorrelationRequest_RoundTrip(t *testing.T) {
	var nilReq *CorrelationRequest
	assert.False(t, nilReq.Correlation().IsCorrelated())
	assert.False(t, (&CorrelationRequest{AssetManagerGUID: "  "}).Correlation().IsCorrelated())

	req := &CorrelationRequest{
		AssetManagerName:   "CatalogX",
		ExternalIdentifier: &ExternalIdentifier{Identifier: "EXT-9"},
		AssetManagerIsHome: true,
	}
	c := req.Correlation()
	assert.True(t, c.IsHome())
	assert.Equal(t, req, c.Request())
}

func TestExternalIdentifier_WithDefaults(t *testing.T) {
	id := ExternalIdentifier{Identifier: "x"}.WithDefaults()
	assert.Equal(t, KeyPatternLocal, id.KeyPattern)
	assert.True(t, id.KeyPattern.Valid())
	assert.False(t, KeyPattern("BOGUS").Valid())
}
