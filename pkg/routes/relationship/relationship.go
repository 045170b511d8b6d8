package relationship

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

// Register registers the relationship routes. elements is the element group, which
// carries the per-element listing.
func Register(g *echo.Group, elements *echo.Group, manager *correlation.Manager) {
	h := &Handler{manager: manager}
	g.POST("", h.Attach)
	g.POST("/remove", h.Detach)
	elements.GET("/:guid/relationships", h.ListForElement)
}

func (h *Handler) Attach(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "relationship_handler.Attach")
	defer span.End()

	req, err := utils.BindRequest[models.AttachRelationshipRequest](c)
	if err != nil {
		return err
	}

	guid, err := h.manager.AttachRelationship(ctx, req.TypeName, req.EndOneGUID, req.EndTwoGUID, req.Properties, req.Correlation.Correlation(), req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, models.RelationshipGUIDResponse{GUID: guid})
}

func (h *Handler) Detach(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "relationship_handler.Detach")
	defer span.End()

	req, err := utils.BindRequest[models.DetachRelationshipRequest](c)
	if err != nil {
		return err
	}

	if err := h.manager.DetachRelationship(ctx, req.TypeName, req.EndOneGUID, req.EndTwoGUID, req.Correlation.Correlation(), req.Options); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListForElement(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "relationship_handler.ListForElement")
	defer span.End()

	paging, err := utils.QueryPaging(c)
	if err != nil {
		return err
	}
	opts, err := utils.QueryOptions(c)
	if err != nil {
		return err
	}

	rels, err := h.manager.ListRelationships(ctx, c.Param("guid"), paging, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.RelationshipListResponse{Items: rels})
}
