package correlation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	manager "github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Handler serves the correlation routes of an element.
type Handler struct {
	manager *manager.Manager
}

// Register registers the correlation routes under an element group.
func Register(g *echo.Group, m *manager.Manager) {
	h := &Handler{manager: m}
	g.GET("/:guid/correlations", h.List)
	g.GET("/:guid/correlations/:assetManagerGUID", h.Lookup)
	g.POST("/:guid/correlations/:assetManagerGUID/reconcile", h.Reconcile)
}

func (h *Handler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "correlation_handler.List")
	defer span.End()

	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	records, err := h.manager.ListCorrelations(ctx, c.Param("guid"), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.CorrelationListResponse{Items: records})
}

// Lookup answers with a null record when the element exists but is not correlated.
func (h *Handler) Lookup(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "correlation_handler.Lookup")
	defer span.End()

	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	record, err := h.manager.Lookup(ctx, c.Param("guid"), models.AssetManagerRef{GUID: c.Param("assetManagerGUID")}, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.CorrelationLookupResponse{Record: record})
}

func (h *Handler) Reconcile(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "correlation_handler.Reconcile")
	defer span.End()

	req, err := utils.BindRequest[models.ReconcileRequest](c)
	if err != nil {
		return err
	}
	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	record, err := h.manager.ReconcileCorrelation(ctx, c.Param("guid"), models.AssetManagerRef{GUID: c.Param("assetManagerGUID")}, req.ExternalIdentifier, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}
