// Package websocket delivers new-message events to operators watching a
// patient's conversation. Subscriptions are live-tail only: there is no
// replay, and a viewer that connects after an event was published never
// receives it.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Event is a new-message notification pushed to viewers of one patient.
type Event struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Sender       string    `json:"sender"`
	Timestamp    time.Time `json:"timestamp"`
	AISuggestion *string   `json:"ai_suggestion"`
}

// Subscriber is a single live connection watching one patient.
type Subscriber struct {
	PatientID uuid.UUID
	Send      chan []byte
}

// NewSubscriber creates a subscriber for the given patient with a buffered
// outbound channel.
func NewSubscriber(patientID uuid.UUID) *Subscriber {
	return &Subscriber{
		PatientID: patientID,
		Send:      make(chan []byte, 256),
	}
}

// Hub maps patient IDs to their current viewers. All operations are
// thread-safe via sync.RWMutex.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*Subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a viewer for its patient.
func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[sub.PatientID] == nil {
		h.subscribers[sub.PatientID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[sub.PatientID][sub] = struct{}{}
}

// Unsubscribe removes a viewer and closes its Send channel. When the last
// viewer of a patient leaves, the patient's entry is removed entirely so the
// map does not accumulate empty sets.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewers, ok := h.subscribers[sub.PatientID]
	if !ok {
		return
	}
	if _, ok := viewers[sub]; !ok {
		return
	}

	delete(viewers, sub)
	if len(viewers) == 0 {
		delete(h.subscribers, sub.PatientID)
	}
	close(sub.Send)
}

// Publish delivers an event to every current viewer of the patient,
// best-effort. A viewer with a full buffer is skipped rather than blocking
// delivery to the others. No viewers is a no-op.
func (h *Hub) Publish(patientID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[patientID] {
		select {
		case sub.Send <- data:
		default:
			// Viewer buffer full; skip to avoid blocking.
		}
	}
}

// ViewerCount returns the number of viewers currently watching a patient.
func (h *Hub) ViewerCount(patientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[patientID])
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for live-subscription connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades HTTP connections to patient-scoped live subscriptions.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new Handler bound to the given Hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the live-subscription endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/:patientID", h.HandleConnect)
}

// HandleConnect upgrades the connection, registers the viewer and starts the
// read/write pumps. The subscription lives exactly as long as the connection:
// any read error, including an abnormal network drop, unregisters the viewer.
func (h *Handler) HandleConnect(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := NewSubscriber(patientID)
	h.hub.Subscribe(sub)

	go h.writePump(sub, ws)
	go h.readPump(sub, ws)

	return nil
}

// readPump drains inbound frames. The client is not required to send
// anything beyond keep-alives; frames are discarded.
func (h *Handler) readPump(sub *Subscriber, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unsubscribe(sub)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards published events to the connection.
func (h *Handler) writePump(sub *Subscriber, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range sub.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}
