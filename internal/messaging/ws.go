package messaging

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/middleware"
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type hub struct {
	jobID   string
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

var (
	hubsMu sync.RWMutex
	hubs   = make(map[string]*hub)
)

func getHub(jobID string) *hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	if h, ok := hubs[jobID]; ok {
		return h
	}
	h := &hub{jobID: jobID, clients: make(map[*websocket.Conn]bool)}
	hubs[jobID] = h
	return h
}

func (h *hub) broadcast(evt wsEvent) {
	payload, _ := json.Marshal(evt)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.WriteMessage(websocket.TextMessage, payload)
	}
}

func (h *hub) register(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// JobWS upgrades to a websocket for realtime updates on a job thread.
// Only the job's two participants may subscribe.
func (h *Handler) JobWS(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing job id"})
	}

	if _, err := h.svc.VerifyParticipant(c.Request().Context(), actor.ID, jobID); err != nil {
		return c.JSON(apperrors.HTTPStatus(err), echo.Map{"error": apperrors.PublicMessage(err)})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	hb := getHub(jobID)
	hb.register(ws)
	hb.broadcast(wsEvent{Type: "presence:join", Data: echo.Map{"user_id": actor.ID}})

	// Read loop; protocol is server push, client frames are discarded.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			hb.unregister(ws)
			_ = ws.Close()
			hb.broadcast(wsEvent{Type: "presence:leave", Data: echo.Map{"user_id": actor.ID}})
			break
		}
	}
	return nil
}

// BroadcastNewMessage publishes a new message event to the job's hub.
func BroadcastNewMessage(jobID string, m *Message) {
	getHub(jobID).broadcast(wsEvent{Type: "message:new", Data: m})
}

// BroadcastMessagesRead publishes a read receipt event to the job's hub.
func BroadcastMessagesRead(jobID, readerID string, at time.Time) {
	getHub(jobID).broadcast(wsEvent{Type: "message:read", Data: echo.Map{
		"job_id":    jobID,
		"reader_id": readerID,
		"read_at":   at,
	}})
}
