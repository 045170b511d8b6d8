package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/elementtypes"
	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes"
)

func startServer(t *testing.T) string {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := memstore.New()
	manager, err := correlation.NewManager(logger, elementtypes.Default(), correlation.Stores{
		Elements:      store.Elements(),
		Relationships: store.Relationships(),
		Correlations:  store.Correlations(),
		AssetManagers: store.AssetManagers(),
	}, correlation.Config{})
	require.NoError(t, err)

	server := httptest.NewServer(routes.NewRouter(routes.RouterConfig{Logger: logger, Manager: manager}))
	t.Cleanup(server.Close)
	return server.URL
}

func execute(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "cloverctl", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"asset-manager", "element", "correlation", "relationship"} {
		assert.True(t, names[want], want)
	}
	require.NotNil(t, cmd.PersistentFlags().Lookup("server"))
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestCorrelatedElementCommands(t *testing.T) {
	server := startServer(t)

	out, err := execute(t, server, "asset-manager", "register", "catalog-a")
	require.NoError(t, err)
	am := decode[models.AssetManager](t, out)
	require.NotEmpty(t, am.GUID)

	out, err = execute(t, server, "element", "create", "Asset",
		"--qualified-name", "asset:orders",
		"--property", "owner=data-team",
		"--asset-manager", am.GUID,
		"--identifier", "orders-1")
	require.NoError(t, err)
	created := decode[models.ElementGUIDResponse](t, out)
	require.NotEmpty(t, created.GUID)

	out, err = execute(t, server, "correlation", "lookup", created.GUID, am.GUID)
	require.NoError(t, err)
	lookup := decode[models.CorrelationLookupResponse](t, out)
	require.NotNil(t, lookup.Record)
	assert.Equal(t, "orders-1", lookup.Record.ExternalIdentifier.Identifier)

	_, err = execute(t, server, "element", "update", created.GUID,
		"--display-name", "Orders",
		"--asset-manager", am.GUID,
		"--identifier", "orders-2")
	require.Error(t, err)
	assert.True(t, errors.IsCorrelationMismatch(err))

	out, err = execute(t, server, "correlation", "reconcile", created.GUID, am.GUID, "orders-2")
	require.NoError(t, err)
	assert.Equal(t, "orders-2", decode[models.CorrelationRecord](t, out).ExternalIdentifier.Identifier)

	out, err = execute(t, server, "element", "get", created.GUID)
	require.NoError(t, err)
	element := decode[models.Element](t, out)
	assert.Equal(t, "data-team", element.Properties.AdditionalProperties["owner"])

	out, err = execute(t, server, "-o", "yaml", "asset-manager", "elements", am.GUID, "orders-2")
	require.NoError(t, err)
	assert.Contains(t, out, "asset:orders")

	_, err = execute(t, server, "element", "remove", created.GUID, "--asset-manager", am.GUID, "--identifier", "orders-2")
	require.NoError(t, err)

	_, err = execute(t, server, "element", "get", created.GUID)
	assert.True(t, errors.IsNotFound(err))
}

func TestRelationshipCommands(t *testing.T) {
	server := startServer(t)

	out, err := execute(t, server, "element", "create", "Connection", "--qualified-name", "connection:orders")
	require.NoError(t, err)
	conn := decode[models.ElementGUIDResponse](t, out).GUID

	out, err = execute(t, server, "element", "create", "Asset", "--qualified-name", "asset:orders")
	require.NoError(t, err)
	asset := decode[models.ElementGUIDResponse](t, out).GUID

	_, err = execute(t, server, "relationship", "attach", "ConnectionToAsset", conn, asset, "--property", "role=primary")
	require.NoError(t, err)

	out, err = execute(t, server, "relationship", "list", asset)
	require.NoError(t, err)
	rels := decode[[]models.Relationship](t, out)
	require.Len(t, rels, 1)
	assert.Equal(t, "primary", rels[0].Properties["role"])

	_, err = execute(t, server, "relationship", "detach", "ConnectionToAsset", conn, asset)
	require.NoError(t, err)
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties([]string{"a=1", " b =x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, props)

	_, err = parseProperties([]string{"novalue"})
	assert.Error(t, err)

	props, err = parseProperties(nil)
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestCorrelationFlagsRequest(t *testing.T) {
	var f correlationFlags
	assert.Nil(t, f.request())

	f = correlationFlags{assetManagerName: "catalog-a", identifier: "x", home: true}
	req := f.request()
	require.NotNil(t, req)
	assert.Equal(t, "catalog-a", req.AssetManagerName)
	assert.True(t, req.AssetManagerIsHome)
	assert.Equal(t, "x", req.ExternalIdentifier.Identifier)
}
