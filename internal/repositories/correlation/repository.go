// Package correlation stores correlation records in Postgres, one row per
// (element, asset manager) pair.
package correlation

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "correlations"

var columns = []string{
	"element_guid", "element_type", "asset_manager_guid", "asset_manager_name", "external_identifier",
	"synchronization_direction", "synchronization_description", "asset_manager_is_home", "last_known_version",
	"created_at", "updated_at",
}

var orderBy = []string{"created_at", "element_guid", "asset_manager_guid"}

type row struct {
	models.CorrelationRecord
	Identifier database.JSONB[models.ExternalIdentifier] `db:"external_identifier"`
}

func (r row) toModel() models.CorrelationRecord {
	record := r.CorrelationRecord
	record.ExternalIdentifier = r.Identifier.Data
	return record
}

// Repository is the PostgreSQL correlation record store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new correlation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Attach inserts a record. The element and the asset manager must exist.
func (r *Repository) Attach(ctx context.Context, record *models.CorrelationRecord) error {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.Attach")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols(append(slices.Clone(columns), "identifier")...).
		Values(record.ElementGUID, record.ElementType, record.AssetManagerGUID, record.AssetManagerName,
			database.NewJSONB(record.ExternalIdentifier), record.SynchronizationDirection, record.SynchronizationDescription,
			record.AssetManagerIsHome, record.LastKnownVersion, record.CreatedAt, record.UpdatedAt,
			identifierOf(record))
	query, args := ib.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return httperror.NewHTTPErrorf(http.StatusConflict, "element %s is already correlated with asset manager %s", record.ElementGUID, record.AssetManagerGUID)
	case database.IsForeignKeyViolation(err):
		return httperror.NewHTTPErrorf(http.StatusNotFound, "element %s or asset manager %s not found", record.ElementGUID, record.AssetManagerGUID)
	}

	r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"element_guid":       record.ElementGUID,
		"asset_manager_guid": record.AssetManagerGUID,
	}).Error("Failed to attach correlation")
	return httperror.NewHTTPError(http.StatusInternalServerError, "failed to attach correlation")
}

// Lookup returns the record for the pair, or nil when there is none.
func (r *Repository) Lookup(ctx context.Context, elementGUID, assetManagerGUID string) (*models.CorrelationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.Lookup")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(
		sb.Equal("element_guid", elementGUID),
		sb.Equal("asset_manager_guid", assetManagerGUID),
	)
	query, args := sb.Build()

	var rw row
	err := r.db.GetContext(ctx, &rw, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up correlation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up correlation")
	}
	record := rw.toModel()
	return &record, nil
}

// Update overwrites an existing record.
func (r *Repository) Update(ctx context.Context, record *models.CorrelationRecord) error {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName).
		Set(
			ub.Assign("element_type", record.ElementType),
			ub.Assign("asset_manager_name", record.AssetManagerName),
			ub.Assign("external_identifier", database.NewJSONB(record.ExternalIdentifier)),
			ub.Assign("identifier", identifierOf(record)),
			ub.Assign("synchronization_direction", record.SynchronizationDirection),
			ub.Assign("synchronization_description", record.SynchronizationDescription),
			ub.Assign("asset_manager_is_home", record.AssetManagerIsHome),
			ub.Assign("last_known_version", record.LastKnownVersion),
			ub.Assign("updated_at", record.UpdatedAt),
		).
		Where(ub.Equal("element_guid", record.ElementGUID), ub.Equal("asset_manager_guid", record.AssetManagerGUID))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update correlation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update correlation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no correlation between element %s and asset manager %s", record.ElementGUID, record.AssetManagerGUID)
	}
	return nil
}

func (r *Repository) Detach(ctx context.Context, elementGUID, assetManagerGUID string) error {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.Detach")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(db.Equal("element_guid", elementGUID), db.Equal("asset_manager_guid", assetManagerGUID))
	query, args := db.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to detach correlation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to detach correlation")
	}
	return nil
}

// DetachAll deletes every record of the element and returns them.
func (r *Repository) DetachAll(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.DetachAll")
	defer span.End()

	query := fmt.Sprintf("DELETE FROM %s WHERE element_guid = $1 RETURNING %s", tableName, strings.Join(columns, ", "))

	records, err := r.selectRecords(ctx, query, []any{elementGUID})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, compareRecords)
	return records, nil
}

func (r *Repository) ListForElement(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.ListForElement")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(sb.Equal("element_guid", elementGUID)).OrderBy(orderBy...).Asc()
	query, args := sb.Build()
	return r.selectRecords(ctx, query, args)
}

// FindByIdentifier returns the records the asset manager stores under identifier.
func (r *Repository) FindByIdentifier(ctx context.Context, assetManagerGUID, identifier string) ([]models.CorrelationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.FindByIdentifier")
	defer span.End()

	query, args := buildFindByIdentifier(assetManagerGUID, identifier)
	return r.selectRecords(ctx, query, args)
}

// DetachAssetManager deletes every record of the asset manager and returns how many there were.
func (r *Repository) DetachAssetManager(ctx context.Context, assetManagerGUID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "CorrelationRepository.DetachAssetManager")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName).Where(db.Equal("asset_manager_guid", assetManagerGUID))
	query, args := db.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("asset_manager_guid", assetManagerGUID).Error("Failed to detach asset manager correlations")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to detach asset manager correlations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count detached correlations")
	}
	return int(n), nil
}

func (r *Repository) selectRecords(ctx context.Context, query string, args []any) ([]models.CorrelationRecord, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query correlations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query correlations")
	}
	records := make([]models.CorrelationRecord, 0, len(rows))
	for _, rw := range rows {
		records = append(records, rw.toModel())
	}
	return records, nil
}

func buildFindByIdentifier(assetManagerGUID, identifier string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).
		Where(sb.Equal("asset_manager_guid", assetManagerGUID), sb.Equal("identifier", identifier)).
		OrderBy(orderBy...).Asc()
	return sb.Build()
}

// identifierOf is the indexed copy of the identifier value.
func identifierOf(record *models.CorrelationRecord) string {
	return record.ExternalIdentifier.Identifier
}

func compareRecords(a, b models.CorrelationRecord) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ElementGUID, b.ElementGUID); c != 0 {
		return c
	}
	return cmp.Compare(a.AssetManagerGUID, b.AssetManagerGUID)
}
