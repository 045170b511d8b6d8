package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// effectiveClause keeps relationships whose window covers $at; a null $at keeps all.
const effectiveClause = `($at IS NULL OR ((r.effective_from IS NULL OR r.effective_from <= $at) AND (r.effective_to IS NULL OR r.effective_to > $at)))`

// RelationshipStore stores each relationship as an edge between two :Element nodes.
// The edge label is the sanitized relationship type; the exact type name is kept in
// the type_name property and used for matching.
type RelationshipStore struct {
	client *Client
	logger ectologger.Logger
}

// NewRelationshipStore creates a relationship store over client.
func NewRelationshipStore(client *Client, logger ectologger.Logger) *RelationshipStore {
	return &RelationshipStore{client: client, logger: logger}
}

// Relate creates an edge between the two element nodes, merging the nodes in.
func (s *RelationshipStore) Relate(ctx context.Context, rel *models.Relationship, _ models.RequestOptions) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipStore.Relate")
	defer span.End()

	created := *rel
	if created.GUID == "" {
		created.GUID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()

	props, err := toProps(created)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "relationship properties are not serializable")
	}

	cypher := fmt.Sprintf(`
		MERGE (one:Element {guid: $end_one})
		MERGE (two:Element {guid: $end_two})
		CREATE (one)-[r:%s]->(two)
		SET r = $props
	`, sanitizeLabel(created.TypeName))

	_, err = s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"end_one": created.EndOneGUID,
			"end_two": created.EndTwoGUID,
			"props":   props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"relationship_type": created.TypeName,
			"end_one_guid":      created.EndOneGUID,
			"end_two_guid":      created.EndTwoGUID,
		}).Error("Failed to create relationship in graph")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create relationship")
	}

	return &created, nil
}

// Find returns the edges of relType from endOneGUID to endTwoGUID.
func (s *RelationshipStore) Find(ctx context.Context, relType, endOneGUID, endTwoGUID string, opts models.RequestOptions) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipStore.Find")
	defer span.End()

	cypher := `
		MATCH (one:Element {guid: $end_one})-[r {type_name: $type_name}]->(two:Element {guid: $end_two})
		WHERE ` + effectiveClause + `
		RETURN r, one.guid AS end_one, two.guid AS end_two
		ORDER BY r.created_at, r.guid
	`
	return s.query(ctx, cypher, map[string]any{
		"end_one":   endOneGUID,
		"end_two":   endTwoGUID,
		"type_name": relType,
		"at":        optionalTime(opts.EffectiveTime),
	})
}

// Unrelate deletes the matching edges.
func (s *RelationshipStore) Unrelate(ctx context.Context, relType, endOneGUID, endTwoGUID string, _ models.RequestOptions) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipStore.Unrelate")
	defer span.End()

	return s.write(ctx, `
		MATCH (:Element {guid: $end_one})-[r {type_name: $type_name}]->(:Element {guid: $end_two})
		DELETE r
	`, map[string]any{
		"end_one":   endOneGUID,
		"end_two":   endTwoGUID,
		"type_name": relType,
	})
}

// List pages through the edges touching guid.
func (s *RelationshipStore) List(ctx context.Context, guid string, paging models.Paging, opts models.RequestOptions) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipStore.List")
	defer span.End()

	limit := paging.PageSize
	if limit <= 0 {
		limit = models.DefaultMaxPageSize
	}
	cypher := `
		MATCH (e:Element {guid: $guid})-[r]-()
		WHERE ` + effectiveClause + `
		RETURN r, startNode(r).guid AS end_one, endNode(r).guid AS end_two
		ORDER BY r.created_at, r.guid
		SKIP $skip LIMIT $limit
	`
	return s.query(ctx, cypher, map[string]any{
		"guid":  guid,
		"at":    optionalTime(opts.EffectiveTime),
		"skip":  paging.StartFrom,
		"limit": limit,
	})
}

// RemoveForElement deletes the element node and its edges.
func (s *RelationshipStore) RemoveForElement(ctx context.Context, guid string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipStore.RemoveForElement")
	defer span.End()

	return s.write(ctx, `MATCH (e:Element {guid: $guid}) DETACH DELETE e`, map[string]any{"guid": guid})
}

func (s *RelationshipStore) write(ctx context.Context, cypher string, params map[string]any) error {
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to delete relationships in graph")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationships")
	}
	return nil
}

func (s *RelationshipStore) query(ctx context.Context, cypher string, params map[string]any) ([]models.Relationship, error) {
	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]models.Relationship, 0, len(records))
		for _, record := range records {
			r, _, err := neo4j.GetRecordValue[neo4j.Relationship](record, "r")
			if err != nil {
				return nil, err
			}
			one, _, err := neo4j.GetRecordValue[string](record, "end_one")
			if err != nil {
				return nil, err
			}
			two, _, err := neo4j.GetRecordValue[string](record, "end_two")
			if err != nil {
				return nil, err
			}
			rel, err := fromProps(r.Props, one, two)
			if err != nil {
				return nil, err
			}
			out = append(out, rel)
		}
		return out, nil
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to query relationships in graph")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query relationships")
	}
	return res.([]models.Relationship), nil
}

// toProps flattens a relationship into edge properties. Nested maps are not valid
// property values, so the property bag is stored as JSON.
func toProps(rel models.Relationship) (map[string]any, error) {
	bag, err := json.Marshal(rel.Properties)
	if err != nil {
		return nil, err
	}
	props := map[string]any{
		"guid":       rel.GUID,
		"type_name":  rel.TypeName,
		"properties": string(bag),
		"created_at": rel.CreatedAt,
	}
	if rel.HomeAssetManagerGUID != nil {
		props["home_asset_manager_guid"] = *rel.HomeAssetManagerGUID
	}
	if rel.EffectiveFrom != nil {
		props["effective_from"] = *rel.EffectiveFrom
	}
	if rel.EffectiveTo != nil {
		props["effective_to"] = *rel.EffectiveTo
	}
	return props, nil
}

func fromProps(props map[string]any, endOne, endTwo string) (models.Relationship, error) {
	rel := models.Relationship{EndOneGUID: endOne, EndTwoGUID: endTwo}
	rel.GUID, _ = props["guid"].(string)
	rel.TypeName, _ = props["type_name"].(string)
	if bag, ok := props["properties"].(string); ok && bag != "" && bag != "null" {
		if err := json.Unmarshal([]byte(bag), &rel.Properties); err != nil {
			return rel, fmt.Errorf("relationship %s has unreadable properties: %w", rel.GUID, err)
		}
	}
	if home, ok := props["home_asset_manager_guid"].(string); ok {
		rel.HomeAssetManagerGUID = &home
	}
	if t, ok := props["effective_from"].(time.Time); ok {
		rel.EffectiveFrom = &t
	}
	if t, ok := props["effective_to"].(time.Time); ok {
		rel.EffectiveTo = &t
	}
	if t, ok := props["created_at"].(time.Time); ok {
		rel.CreatedAt = t
	}
	return rel, nil
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// sanitizeLabel keeps letters, digits and underscores.
func sanitizeLabel(label string) string {
	out := make([]rune, 0, len(label))
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "RELATED_TO"
	}
	return string(out)
}
