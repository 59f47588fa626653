package messaging

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

func (h *Handler) Register(g *echo.Group) {
	g.POST("/jobs/:id/messages", h.Send)
	g.GET("/jobs/:id/messages", h.Thread)
	g.GET("/jobs/:id/ws", h.JobWS)
	g.GET("/conversations", h.Conversations)
	g.GET("/messages/unread-count", h.UnreadCount)
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), echo.Map{"error": apperrors.PublicMessage(err)})
}

func (h *Handler) Send(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing job id"})
	}

	var body struct {
		RecipientID string `json:"recipient_id"`
		Text        string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	m, err := h.svc.Send(context.Background(), actor.ID, actor.FullName, jobID, body.RecipientID, body.Text)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": m})
}

func (h *Handler) Thread(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing job id"})
	}

	msgs, err := h.svc.Thread(context.Background(), actor.ID, jobID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(msgs), "messages": msgs})
}

func (h *Handler) Conversations(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	convs, err := h.svc.Conversations(context.Background(), actor.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(convs), "conversations": convs})
}

func (h *Handler) UnreadCount(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	total, err := h.svc.UnreadCount(context.Background(), actor.ID)
	if err != nil {
		return jsonError(c, err)
	}
	byJob, err := h.svc.UnreadCountsByJob(context.Background(), actor.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "by_job": byJob})
}
