package rating

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(e *echo.Echo, g *echo.Group) {
	g.POST("/jobs/:id/rating", h.Create, middleware.RequireRoles("customer"))
	e.GET("/handymen/:id/ratings", h.ListByHandyman)
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), echo.Map{"error": apperrors.PublicMessage(err)})
}

func (h *Handler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing job id"})
	}

	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	r, err := h.svc.Create(context.Background(), actor.ID, actor.FullName, jobID, body.Rating, body.Comment)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Rating submitted successfully", "rating": r})
}

func (h *Handler) ListByHandyman(c echo.Context) error {
	handymanID := c.Param("id")
	if handymanID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing handyman id"})
	}

	ratings, err := h.svc.ListByHandyman(context.Background(), handymanID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(ratings), "ratings": ratings})
}
