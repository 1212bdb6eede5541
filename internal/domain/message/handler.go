package message

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cuideme/cuideme/internal/domain/patient"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/messages/:patientID", h.GetHistory)
	api.POST("/messages/send/:patientID", h.SendMessage)
}

func (h *Handler) GetHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	items, err := h.svc.History(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Message{}
	}
	return c.JSON(http.StatusOK, items)
}

type sendRequest struct {
	Text string `json:"text" form:"text"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	m, err := h.svc.Send(c.Request().Context(), patientID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrDeliveryFailed):
			return echo.NewHTTPError(http.StatusBadGateway, "message delivery failed")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, m)
}
