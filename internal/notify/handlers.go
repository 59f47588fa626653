package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abenezer-sh/fixit/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/notifications", h.List)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.POST("/notifications/:id/read", h.MarkAsRead)
	g.POST("/notifications/read-all", h.MarkAllAsRead)
}

// List returns current user's notifications, newest first
func (h *Handler) List(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := h.svc.pool.Query(context.Background(),
		`SELECT id::text, type, title, message, data, read, created_at
         FROM notifications WHERE recipient_id = $1
         ORDER BY created_at DESC LIMIT 100`, actor.ID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		var data []byte
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse notification"})
		}
		n.RecipientID = actor.ID
		n.CreatedAt = createdAt
		if len(data) > 0 {
			_ = json.Unmarshal(data, &n.Data)
		}
		items = append(items, n)
	}

	return c.JSON(http.StatusOK, echo.Map{"notifications": items, "count": len(items)})
}

// UnreadCount returns the number of unread notifications for the caller
func (h *Handler) UnreadCount(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var count int64
	err := h.svc.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`, actor.ID,
	).Scan(&count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}

	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead flips one notification to read
func (h *Handler) MarkAsRead(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	if nid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	res, err := h.svc.pool.Exec(context.Background(),
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2 AND read = FALSE`,
		nid, actor.ID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// MarkAllAsRead flips all of the caller's notifications to read
func (h *Handler) MarkAllAsRead(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res, err := h.svc.pool.Exec(context.Background(),
		`UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`, actor.ID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": res.RowsAffected()})
}
