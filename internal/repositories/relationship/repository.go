// Package relationship stores typed links between elements in Postgres.
package relationship

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "relationships"

var columns = []string{"guid", "type_name", "end_one_guid", "end_two_guid", "properties", "home_asset_manager_guid", "effective_from", "effective_to", "created_at"}

type row struct {
	GUID                 string                         `db:"guid"`
	TypeName             string                         `db:"type_name"`
	EndOneGUID           string                         `db:"end_one_guid"`
	EndTwoGUID           string                         `db:"end_two_guid"`
	Properties           database.JSONB[map[string]any] `db:"properties"`
	HomeAssetManagerGUID *string                        `db:"home_asset_manager_guid"`
	EffectiveFrom        *time.Time                     `db:"effective_from"`
	EffectiveTo          *time.Time                     `db:"effective_to"`
	CreatedAt            time.Time                      `db:"created_at"`
}

func (r row) toModel() models.Relationship {
	return models.Relationship{
		GUID:                 r.GUID,
		TypeName:             r.TypeName,
		EndOneGUID:           r.EndOneGUID,
		EndTwoGUID:           r.EndTwoGUID,
		Properties:           r.Properties.Data,
		HomeAssetManagerGUID: r.HomeAssetManagerGUID,
		EffectiveFrom:        r.EffectiveFrom,
		EffectiveTo:          r.EffectiveTo,
		CreatedAt:            r.CreatedAt,
	}
}

// Repository is the PostgreSQL relationship store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Relate inserts a relationship with a new GUID.
func (r *Repository) Relate(ctx context.Context, rel *models.Relationship, _ models.RequestOptions) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Relate")
	defer span.End()

	created := *rel
	if created.GUID == "" {
		created.GUID = uuid.NewString()
	}
	if created.Properties == nil {
		created.Properties = map[string]any{}
	}
	created.CreatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols(columns...).
		Values(created.GUID, created.TypeName, created.EndOneGUID, created.EndTwoGUID, database.NewJSONB(created.Properties),
			created.HomeAssetManagerGUID, created.EffectiveFrom, created.EffectiveTo, created.CreatedAt)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "relationship end %s or %s not found", created.EndOneGUID, created.EndTwoGUID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"relationship_type": created.TypeName,
			"end_one_guid":      created.EndOneGUID,
			"end_two_guid":      created.EndTwoGUID,
		}).Error("Failed to create relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create relationship")
	}

	return &created, nil
}

func (r *Repository) Find(ctx context.Context, relType, endOneGUID, endTwoGUID string, opts models.RequestOptions) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Find")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(
		sb.Equal("type_name", relType),
		sb.Equal("end_one_guid", endOneGUID),
		sb.Equal("end_two_guid", endTwoGUID),
	)
	effectiveAt(sb, opts)
	sb.OrderBy("created_at", "guid").Asc()
	query, args := sb.Build()

	return r.selectRows(ctx, query, args)
}

// Unrelate deletes the matching relationships. Deleting none is not an error.
func (r *Repository) Unrelate(ctx context.Context, relType, endOneGUID, endTwoGUID string, _ models.RequestOptions) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Unrelate")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(
		db.Equal("type_name", relType),
		db.Equal("end_one_guid", endOneGUID),
		db.Equal("end_two_guid", endTwoGUID),
	)
	return r.exec(ctx, db, "Failed to delete relationship")
}

// List pages through the relationships that have guid at either end.
func (r *Repository) List(ctx context.Context, guid string, paging models.Paging, opts models.RequestOptions) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.List")
	defer span.End()

	query, args := buildList(guid, paging, opts)
	return r.selectRows(ctx, query, args)
}

func (r *Repository) RemoveForElement(ctx context.Context, guid string) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.RemoveForElement")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(db.Or(db.Equal("end_one_guid", guid), db.Equal("end_two_guid", guid)))
	return r.exec(ctx, db, "Failed to delete element relationships")
}

func (r *Repository) exec(ctx context.Context, builder sqlbuilder.Builder, msg string) error {
	query, args := builder.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error(msg)
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationships")
	}
	return nil
}

func (r *Repository) selectRows(ctx context.Context, query string, args []any) ([]models.Relationship, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query relationships")
	}
	out := make([]models.Relationship, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toModel())
	}
	return out, nil
}

func buildList(guid string, paging models.Paging, opts models.RequestOptions) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).
		Where(sb.Or(sb.Equal("end_one_guid", guid), sb.Equal("end_two_guid", guid)))
	effectiveAt(sb, opts)
	sb.OrderBy("created_at", "guid").Asc()
	if paging.PageSize > 0 {
		sb.Limit(paging.PageSize)
	}
	if paging.StartFrom > 0 {
		sb.Offset(paging.StartFrom)
	}
	return sb.Build()
}

func effectiveAt(sb *sqlbuilder.SelectBuilder, opts models.RequestOptions) {
	if opts.EffectiveTime == nil {
		return
	}
	t := *opts.EffectiveTime
	sb.Where(
		sb.Or(sb.IsNull("effective_from"), sb.LessEqualThan("effective_from", t)),
		sb.Or(sb.IsNull("effective_to"), sb.GreaterThan("effective_to", t)),
	)
}
