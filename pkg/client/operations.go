package client

import (
	"context"
	"net/http"

	"github.com/Ramsey-B/clover/pkg/models"
)

// RegisterAssetManager registers an external system, or returns the existing registration.
func (c *Client) RegisterAssetManager(ctx context.Context, req models.RegisterAssetManagerRequest) (*models.AssetManager, error) {
	var am models.AssetManager
	if err := c.do(ctx, http.MethodPost, "/asset-managers", nil, req, &am); err != nil {
		return nil, err
	}
	return &am, nil
}

// GetAssetManager gets an asset manager by GUID.
func (c *Client) GetAssetManager(ctx context.Context, guid string) (*models.AssetManager, error) {
	var am models.AssetManager
	if err := c.do(ctx, http.MethodGet, "/asset-managers/"+escape(guid), nil, nil, &am); err != nil {
		return nil, err
	}
	return &am, nil
}

// GetAssetManagerByName gets an asset manager by qualified name.
func (c *Client) GetAssetManagerByName(ctx context.Context, qualifiedName string) (*models.AssetManager, error) {
	var am models.AssetManager
	if err := c.do(ctx, http.MethodGet, "/asset-managers/by-name/"+escape(qualifiedName), nil, nil, &am); err != nil {
		return nil, err
	}
	return &am, nil
}

// DeleteAssetManager removes the registration and its correlation records.
func (c *Client) DeleteAssetManager(ctx context.Context, guid string) error {
	return c.do(ctx, http.MethodDelete, "/asset-managers/"+escape(guid), nil, nil, nil)
}

// FindByExternalIdentifier returns the elements the asset manager knows by identifier.
func (c *Client) FindByExternalIdentifier(ctx context.Context, assetManagerGUID, identifier string, paging models.Paging, opts models.RequestOptions) ([]models.Element, error) {
	q := pagingQuery(optionsQuery(opts), paging)
	q.Set("identifier", identifier)

	var resp models.ElementListResponse
	if err := c.do(ctx, http.MethodGet, "/asset-managers/"+escape(assetManagerGUID)+"/elements", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateElement creates an element and returns its GUID.
func (c *Client) CreateElement(ctx context.Context, typeName string, req models.CreateElementRequest) (string, error) {
	var resp models.ElementGUIDResponse
	if err := c.do(ctx, http.MethodPost, "/elements/"+escape(typeName), nil, req, &resp); err != nil {
		return "", err
	}
	return resp.GUID, nil
}

// CreateFromTemplate creates an element from a template and returns its GUID.
func (c *Client) CreateFromTemplate(ctx context.Context, typeName, templateGUID string, req models.CreateElementRequest) (string, error) {
	var resp models.ElementGUIDResponse
	path := "/elements/" + escape(typeName) + "/from-template/" + escape(templateGUID)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return "", err
	}
	return resp.GUID, nil
}

// GetElement gets an element by GUID.
func (c *Client) GetElement(ctx context.Context, guid string, opts models.RequestOptions) (*models.Element, error) {
	var element models.Element
	if err := c.do(ctx, http.MethodGet, "/elements/"+escape(guid), optionsQuery(opts), nil, &element); err != nil {
		return nil, err
	}
	return &element, nil
}

func (c *Client) GetElementsByName(ctx context.Context, typeName, name string, paging models.Paging, opts models.RequestOptions) ([]models.Element, error) {
	q := pagingQuery(optionsQuery(opts), paging)
	q.Set("type", typeName)
	q.Set("name", name)

	var resp models.ElementListResponse
	if err := c.do(ctx, http.MethodGet, "/elements/by-name", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// FindElements searches elements.
func (c *Client) FindElements(ctx context.Context, req models.FindElementsRequest) ([]models.Element, error) {
	var resp models.ElementListResponse
	if err := c.do(ctx, http.MethodPost, "/elements/find", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UpdateElement merges the supplied properties when merge is set and replaces them otherwise.
func (c *Client) UpdateElement(ctx context.Context, guid string, merge bool, req models.UpdateElementRequest) error {
	method := http.MethodPut
	if merge {
		method = http.MethodPatch
	}
	return c.do(ctx, method, "/elements/"+escape(guid), nil, req, nil)
}

// RemoveElement removes an element and the elements anchored to it.
func (c *Client) RemoveElement(ctx context.Context, guid string, req models.RemoveElementRequest) error {
	return c.do(ctx, http.MethodPost, "/elements/"+escape(guid)+"/remove", nil, req, nil)
}

// ListCorrelations lists the correlation records of an element.
func (c *Client) ListCorrelations(ctx context.Context, guid string, opts models.RequestOptions) ([]models.CorrelationRecord, error) {
	var resp models.CorrelationListResponse
	if err := c.do(ctx, http.MethodGet, "/elements/"+escape(guid)+"/correlations", optionsQuery(opts), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// LookupCorrelation returns nil without an error when the element exists but the asset
// manager has no record for it.
func (c *Client) LookupCorrelation(ctx context.Context, guid, assetManagerGUID string, opts models.RequestOptions) (*models.CorrelationRecord, error) {
	var resp models.CorrelationLookupResponse
	path := "/elements/" + escape(guid) + "/correlations/" + escape(assetManagerGUID)
	if err := c.do(ctx, http.MethodGet, path, optionsQuery(opts), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

// ReconcileCorrelation overwrites the identifier an asset manager holds for an element.
func (c *Client) ReconcileCorrelation(ctx context.Context, guid, assetManagerGUID string, identifier models.ExternalIdentifier, opts models.RequestOptions) (*models.CorrelationRecord, error) {
	var record models.CorrelationRecord
	path := "/elements/" + escape(guid) + "/correlations/" + escape(assetManagerGUID) + "/reconcile"
	if err := c.do(ctx, http.MethodPost, path, optionsQuery(opts), models.ReconcileRequest{ExternalIdentifier: identifier}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AttachRelationship relates two elements and returns the relationship GUID.
func (c *Client) AttachRelationship(ctx context.Context, req models.AttachRelationshipRequest) (string, error) {
	var resp models.RelationshipGUIDResponse
	if err := c.do(ctx, http.MethodPost, "/relationships", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.GUID, nil
}

// DetachRelationship removes the relationships of a type between two elements.
func (c *Client) DetachRelationship(ctx context.Context, req models.DetachRelationshipRequest) error {
	return c.do(ctx, http.MethodPost, "/relationships/remove", nil, req, nil)
}

func (c *Client) ListRelationships(ctx context.Context, guid string, paging models.Paging, opts models.RequestOptions) ([]models.Relationship, error) {
	var resp models.RelationshipListResponse
	q := pagingQuery(optionsQuery(opts), paging)
	if err := c.do(ctx, http.MethodGet, "/elements/"+escape(guid)+"/relationships", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
