package ingest

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	pipeline    *Pipeline
	verifyToken string
	logger      zerolog.Logger
}

func NewHandler(pipeline *Pipeline, verifyToken string, logger zerolog.Logger) *Handler {
	return &Handler{pipeline: pipeline, verifyToken: verifyToken, logger: logger}
}

// RegisterRoutes mounts the public webhook endpoints.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.Receive)
	e.GET("/webhook", h.Verify)
}

type statusResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Receive handles a webhook delivery. The provider retries non-200 responses,
// and a poison delivery would be redelivered forever, so failures are
// reported inside a 200 body instead of the status code.
func (h *Handler) Receive(c echo.Context) error {
	var payload WebhookPayload
	if err := c.Bind(&payload); err != nil {
		h.logger.Error().Err(err).Msg("webhook payload decode failed")
		return c.JSON(http.StatusOK, statusResponse{Status: "error", Detail: err.Error()})
	}

	if err := h.pipeline.Process(c.Request().Context(), payload); err != nil {
		h.logger.Error().Err(err).Msg("webhook processing failed")
		return c.JSON(http.StatusOK, statusResponse{Status: "error", Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

// Verify answers the provider's subscription handshake: echo the numeric
// challenge when the verify token matches, 403 otherwise.
func (h *Handler) Verify(c echo.Context) error {
	mode := firstQueryParam(c, "hub.mode", "mode")
	token := firstQueryParam(c, "hub.verify_token", "verify_token")
	challenge := firstQueryParam(c, "hub.challenge", "challenge")

	if mode != "subscribe" || token == "" || token != h.verifyToken {
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}

	n, err := strconv.Atoi(challenge)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid challenge")
	}
	return c.JSON(http.StatusOK, n)
}

func firstQueryParam(c echo.Context, names ...string) string {
	for _, name := range names {
		if v := c.QueryParam(name); v != "" {
			return v
		}
	}
	return ""
}
