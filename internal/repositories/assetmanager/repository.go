// Package assetmanager stores asset manager registrations in Postgres.
package assetmanager

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "asset_managers"

var columns = []string{"guid", "qualified_name", "display_name", "description", "deployed_implementation_type", "created_at"}

// Repository is the PostgreSQL asset manager store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new asset manager repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts a registration. A duplicate qualified name is a 409.
func (r *Repository) Create(ctx context.Context, am *models.AssetManager) (*models.AssetManager, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetManagerRepository.Create")
	defer span.End()

	created := *am
	if created.GUID == "" {
		created.GUID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols(columns...).
		Values(created.GUID, created.QualifiedName, created.DisplayName, created.Description, created.DeployedImplementationType, created.CreatedAt)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "asset manager %s already exists", created.QualifiedName)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("qualified_name", created.QualifiedName).Error("Failed to create asset manager")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create asset manager")
	}

	return &created, nil
}

// Get returns the asset manager with guid, or nil when there is none.
func (r *Repository) Get(ctx context.Context, guid string) (*models.AssetManager, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetManagerRepository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(sb.Equal("guid", guid))
	query, args := sb.Build()
	return r.getOne(ctx, query, args)
}

// GetByName returns the asset manager with the qualified name, or nil.
func (r *Repository) GetByName(ctx context.Context, qualifiedName string) (*models.AssetManager, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetManagerRepository.GetByName")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(sb.Equal("qualified_name", qualifiedName))
	query, args := sb.Build()
	return r.getOne(ctx, query, args)
}

// Delete removes the registration.
func (r *Repository) Delete(ctx context.Context, guid string) error {
	ctx, span := tracing.StartSpan(ctx, "AssetManagerRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(db.Equal("guid", guid))
	query, args := db.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("asset_manager_guid", guid).Error("Failed to delete asset manager")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete asset manager")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "asset manager %s not found", guid)
	}
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, args []any) (*models.AssetManager, error) {
	var am models.AssetManager
	err := r.db.GetContext(ctx, &am, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get asset manager")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get asset manager")
	}
	return &am, nil
}
