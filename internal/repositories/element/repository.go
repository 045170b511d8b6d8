// Package element stores metadata elements in Postgres. Properties and classifications
// are kept as jsonb; the searchable properties are also copied to their own columns.
package element

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const tableName = "elements"

var columns = []string{"guid", "type_name", "properties", "classifications", "anchor_guid", "status", "version", "created_at", "updated_at"}

type row struct {
	GUID            string                                   `db:"guid"`
	TypeName        string                                   `db:"type_name"`
	Properties      database.JSONB[models.ElementProperties] `db:"properties"`
	Classifications database.JSONB[[]models.Classification]  `db:"classifications"`
	AnchorGUID      *string                                  `db:"anchor_guid"`
	Status          models.ElementStatus                     `db:"status"`
	Version         int                                      `db:"version"`
	CreatedAt       time.Time                                `db:"created_at"`
	UpdatedAt       time.Time                                `db:"updated_at"`
}

func (r row) toModel() models.Element {
	return models.Element{
		GUID:            r.GUID,
		TypeName:        r.TypeName,
		Properties:      r.Properties.Data,
		Classifications: r.Classifications.Data,
		AnchorGUID:      r.AnchorGUID,
		Status:          r.Status,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Repository is the PostgreSQL element store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new element repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts an element at version 1.
func (r *Repository) Create(ctx context.Context, element *models.Element, _ models.RequestOptions) (*models.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.Create")
	defer span.End()

	created := *element
	if created.GUID == "" {
		created.GUID = uuid.NewString()
	}
	if created.Status == "" {
		created.Status = models.ElementStatusActive
	}
	if created.Classifications == nil {
		created.Classifications = []models.Classification{}
	}
	now := time.Now().UTC()
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	p := created.Properties
	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).
		Cols("guid", "type_name", "properties", "classifications", "qualified_name", "display_name", "description",
			"effective_from", "effective_to", "anchor_guid", "status", "version", "created_at", "updated_at").
		Values(created.GUID, created.TypeName, database.NewJSONB(p), database.NewJSONB(created.Classifications),
			p.QualifiedName, p.DisplayName, p.Description, p.EffectiveFrom, p.EffectiveTo,
			created.AnchorGUID, created.Status, created.Version, created.CreatedAt, created.UpdatedAt)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "element %s already exists", created.GUID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"element_guid": created.GUID,
			"type_name":    created.TypeName,
		}).Error("Failed to create element")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create element")
	}

	return &created, nil
}

// Get returns the element, or nil when it does not exist or is archived outside lineage requests.
func (r *Repository) Get(ctx context.Context, guid string, opts models.RequestOptions) (*models.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(sb.Equal("guid", guid))
	if !opts.ForLineage {
		sb.Where(sb.NotEqual("status", models.ElementStatusArchived))
	}
	query, args := sb.Build()

	found, err := r.get(ctx, r.db, query, args)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	return found, nil
}

// Update merges or replaces the properties and bumps the version.
func (r *Repository) Update(ctx context.Context, guid string, replaceAll bool, props models.ElementProperties, _ models.RequestOptions) (*models.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.Update")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"element_guid": guid,
		"replace_all":  replaceAll,
	})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update element")
	}
	defer tx.Rollback(ctx)

	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName).Where(sb.Equal("guid", guid)).ForUpdate()
	query, args := sb.Build()

	current, err := r.get(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}

	if replaceAll {
		current.Properties = props.Clone()
	} else {
		current.Properties = current.Properties.Merge(props)
	}
	current.Version++
	current.UpdatedAt = time.Now().UTC()

	p := current.Properties
	ub := database.NewUpdateBuilder()
	ub.Update(tableName).
		Set(
			ub.Assign("properties", database.NewJSONB(p)),
			ub.Assign("qualified_name", p.QualifiedName),
			ub.Assign("display_name", p.DisplayName),
			ub.Assign("description", p.Description),
			ub.Assign("effective_from", p.EffectiveFrom),
			ub.Assign("effective_to", p.EffectiveTo),
			ub.Assign("version", current.Version),
			ub.Assign("updated_at", current.UpdatedAt),
		).
		Where(ub.Equal("guid", guid))
	query, args = ub.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to update element")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update element")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update element")
	}

	return current, nil
}

// deleteQuery removes the element and, transitively, every element anchored to it.
const deleteQuery = `
	WITH RECURSIVE anchored AS (
		SELECT guid FROM elements WHERE guid = $1
		UNION
		SELECT e.guid FROM elements e JOIN anchored a ON e.anchor_guid = a.guid
	)
	DELETE FROM elements WHERE guid IN (SELECT guid FROM anchored)
	RETURNING guid
`

// Delete removes the element and every element anchored below it. It returns the removed GUIDs.
func (r *Repository) Delete(ctx context.Context, guid string, _ models.RequestOptions) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.Delete")
	defer span.End()

	var removed []string
	if err := r.db.SelectContext(ctx, &removed, deleteQuery, guid); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("element_guid", guid).Error("Failed to delete element")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete element")
	}
	if len(removed) == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	return rootFirst(guid, removed), nil
}

// Find pages through elements matching criteria.
func (r *Repository) Find(ctx context.Context, criteria models.SearchCriteria, paging models.Paging, opts models.RequestOptions) ([]models.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.Find")
	defer span.End()

	query, args := buildFind(criteria, paging, opts)

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("type_name", criteria.TypeName).Error("Failed to find elements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find elements")
	}

	elements := make([]models.Element, 0, len(rows))
	for _, rw := range rows {
		elements = append(elements, rw.toModel())
	}
	return elements, nil
}

func (r *Repository) SetAnchor(ctx context.Context, guid string, anchorGUID *string) error {
	ctx, span := tracing.StartSpan(ctx, "ElementRepository.SetAnchor")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName).
		Set(ub.Assign("anchor_guid", anchorGUID), ub.Assign("updated_at", sqlbuilder.Raw("NOW()"))).
		Where(ub.Equal("guid", guid))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("element_guid", guid).Error("Failed to set element anchor")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set element anchor")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, exec database.Executor, query string, args []any) (*models.Element, error) {
	var rw row
	err := exec.GetContext(ctx, &rw, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get element")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get element")
	}
	element := rw.toModel()
	return &element, nil
}

func buildFind(c models.SearchCriteria, paging models.Paging, opts models.RequestOptions) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(columns...).From(tableName)

	if c.TypeName != "" {
		sb.Where(sb.Equal("type_name", c.TypeName))
	}
	if c.Name != "" {
		sb.Where(sb.Or(sb.Equal("qualified_name", c.Name), sb.Equal("display_name", c.Name)))
	}
	if c.QualifiedName != "" {
		sb.Where(sb.Equal("qualified_name", c.QualifiedName))
	}
	if c.DisplayName != "" {
		sb.Where(sb.Equal("display_name", c.DisplayName))
	}
	if c.SearchString != "" {
		pattern := "%" + escapeLike(c.SearchString) + "%"
		sb.Where(sb.Or(
			sb.ILike("qualified_name", pattern),
			sb.ILike("display_name", pattern),
			sb.ILike("description", pattern),
		))
	}
	if !opts.ForLineage {
		sb.Where(sb.NotEqual("status", models.ElementStatusArchived))
	}
	if opts.EffectiveTime != nil {
		t := *opts.EffectiveTime
		sb.Where(
			sb.Or(sb.IsNull("effective_from"), sb.LessEqualThan("effective_from", t)),
			sb.Or(sb.IsNull("effective_to"), sb.GreaterThan("effective_to", t)),
		)
	}

	sb.OrderBy("created_at", "guid").Asc()
	if paging.PageSize > 0 {
		sb.Limit(paging.PageSize)
	}
	if paging.StartFrom > 0 {
		sb.Offset(paging.StartFrom)
	}
	return sb.Build()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// rootFirst moves guid to the front; RETURNING gives no order guarantee.
func rootFirst(guid string, removed []string) []string {
	out := make([]string, 0, len(removed))
	out = append(out, guid)
	for _, g := range removed {
		if g != guid {
			out = append(out, g)
		}
	}
	return out
}
