package assetmanager

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

type Handler struct {
	manager *correlation.Manager
}

// Register registers asset manager routes
func Register(g *echo.Group, manager *correlation.Manager) {
	h := &Handler{manager: manager}
	g.POST("", h.Create)
	g.GET("/by-name/:name", h.GetByName)
	g.GET("/:guid", h.Get)
	g.DELETE("/:guid", h.Delete)
	g.GET("/:guid/elements", h.FindElements)
}

// Create registers an asset manager, returning the existing registration when the
// qualified name is already known.
func (h *Handler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "assetmanager_handler.Create")
	defer span.End()

	req, err := utils.BindRequest[models.RegisterAssetManagerRequest](c)
	if err != nil {
		return err
	}

	am, err := h.manager.RegisterAssetManager(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, am)
}

func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "assetmanager_handler.Get")
	defer span.End()

	am, err := h.manager.GetAssetManager(ctx, models.AssetManagerRef{GUID: c.Param("guid")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, am)
}

func (h *Handler) GetByName(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "assetmanager_handler.GetByName")
	defer span.End()

	am, err := h.manager.GetAssetManager(ctx, models.AssetManagerRef{Name: c.Param("name")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, am)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "assetmanager_handler.Delete")
	defer span.End()

	if err := h.manager.DeleteAssetManager(ctx, c.Param("guid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// FindElements returns the elements the asset manager knows by ?identifier=.
func (h *Handler) FindElements(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "assetmanager_handler.FindElements")
	defer span.End()

	paging, err := utils.QueryPaging(c)
	if err != nil {
		return err
	}
	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	elements, err := h.manager.FindByExternalIdentifier(ctx, models.AssetManagerRef{GUID: c.Param("guid")}, c.QueryParam("identifier"), paging, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ElementListResponse{
		Items:     elements,
		StartFrom: paging.StartFrom,
		PageSize:  paging.PageSize,
	})
}
