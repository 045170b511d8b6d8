package element

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Handler serves the element routes.
type Handler struct {
	manager *correlation.Manager
}

// Register registers element routes
func Register(g *echo.Group, manager *correlation.Manager) {
	h := &Handler{manager: manager}
	g.POST("/find", h.Find)
	g.GET("/by-name", h.GetByName)
	g.POST("/:type", h.Create)
	g.POST("/:type/from-template/:templateGUID", h.CreateFromTemplate)
	g.GET("/:guid", h.Get)
	g.PATCH("/:guid", h.Merge)
	g.PUT("/:guid", h.Replace)
	g.POST("/:guid/remove", h.Remove)
}

func (h *Handler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.Create")
	defer span.End()

	req, err := utils.BindRequest[models.CreateElementRequest](c)
	if err != nil {
		return err
	}

	guid, err := h.manager.CreateWithCorrelation(ctx, c.Param("type"), req.Properties, req.Correlation.Correlation(), req.Options, req.Classifications...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, models.ElementGUIDResponse{GUID: guid})
}

func (h *Handler) CreateFromTemplate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.CreateFromTemplate")
	defer span.End()

	req, err := utils.BindRequest[models.CreateElementRequest](c)
	if err != nil {
		return err
	}

	guid, err := h.manager.CreateFromTemplate(ctx, c.Param("type"), c.Param("templateGUID"), req.Properties, req.Correlation.Correlation(), req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, models.ElementGUIDResponse{GUID: guid})
}

func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.Get")
	defer span.End()

	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	element, err := h.manager.GetByGUID(ctx, c.Param("guid"), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, element)
}

// Merge updates only the supplied properties.
func (h *Handler) Merge(c echo.Context) error {
	return h.update(c, true)
}

// Replace overwrites the element's properties.
func (h *Handler) Replace(c echo.Context) error {
	return h.update(c, false)
}

func (h *Handler) update(c echo.Context, isMerge bool) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.Update")
	defer span.End()

	req, err := utils.BindRequest[models.UpdateElementRequest](c)
	if err != nil {
		return err
	}

	if err := h.manager.UpdateWithCorrelation(ctx, c.Param("guid"), req.Correlation.Correlation(), isMerge, req.Properties, req.Options); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Remove(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.Remove")
	defer span.End()

	req, err := utils.BindRequest[models.RemoveElementRequest](c)
	if err != nil {
		return err
	}

	if err := h.manager.RemoveWithCorrelation(ctx, c.Param("guid"), req.Correlation.Correlation(), req.Options); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Find(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.Find")
	defer span.End()

	req, err := utils.BindRequest[models.FindElementsRequest](c)
	if err != nil {
		return err
	}

	elements, err := h.manager.Find(ctx, req.Criteria, req.Paging, req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ElementListResponse{
		Items:     elements,
		StartFrom: req.Paging.StartFrom,
		PageSize:  req.Paging.PageSize,
	})
}

// GetByName returns elements of ?type= whose qualified or display name is ?name=.
func (h *Handler) GetByName(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "element_handler.GetByName")
	defer span.End()

	paging, err := utils.QueryPaging(c)
	if err != nil {
		return err
	}
	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	elements, err := h.manager.GetByName(ctx, c.QueryParam("type"), c.QueryParam("name"), paging, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ElementListResponse{
		Items:     elements,
		StartFrom: paging.StartFrom,
		PageSize:  paging.PageSize,
	})
}
