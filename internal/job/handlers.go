package job

import (
	"context"
	"net/http"
	"time"

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

func (h *Handler) Register(g *echo.Group) {
	g.POST("/jobs", h.Create, middleware.RequireRoles("customer", "admin"))
	g.GET("/jobs/customer", h.ListCustomerJobs)
	g.GET("/jobs/handyman", h.ListHandymanJobs, middleware.RequireRoles("handyman", "admin"))
	g.GET("/jobs/:id", h.Get)
	g.POST("/jobs/:id/accept", h.Accept, middleware.RequireRoles("handyman"))
	g.POST("/jobs/:id/reject", h.Reject, middleware.RequireRoles("handyman"))
	g.POST("/jobs/:id/cancel", h.Cancel, middleware.RequireRoles("customer"))
	g.PATCH("/jobs/:id/status", h.UpdateStatus, middleware.RequireRoles("handyman"))
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), echo.Map{"error": apperrors.PublicMessage(err)})
}

func (h *Handler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	j, err := h.svc.Create(context.Background(), actor.ID, actor.FullName, in)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"job": j})
}

func (h *Handler) Get(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	j, err := h.svc.Get(context.Background(), actor.ID, actor.Role, c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": j})
}

func (h *Handler) ListCustomerJobs(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobs, err := h.svc.ListCustomerJobs(context.Background(), actor.ID, c.QueryParam("status"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(jobs), "jobs": jobs})
}

func (h *Handler) ListHandymanJobs(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobs, err := h.svc.ListHandymanJobs(context.Background(), actor.ID, c.QueryParam("status"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(jobs), "jobs": jobs})
}

func (h *Handler) Accept(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var body struct {
		ScheduledTime *time.Time `json:"scheduled_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	j, err := h.svc.Accept(context.Background(), actor.ID, actor.FullName, c.Param("id"), body.ScheduledTime)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Job accepted successfully", "job": j})
}

func (h *Handler) Reject(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	j, err := h.svc.Reject(context.Background(), actor.ID, actor.FullName, c.Param("id"), body.Reason)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Job rejected successfully", "job": j})
}

func (h *Handler) Cancel(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	j, err := h.svc.Cancel(context.Background(), actor.ID, actor.FullName, c.Param("id"), body.Reason)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Job cancelled successfully", "job": j})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	j, err := h.svc.UpdateStatus(context.Background(), actor.ID, actor.FullName, c.Param("id"), body.Status)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Job status updated successfully", "job": j})
}
