package scheduling

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/appointments", h.ListAppointments)
	e.POST("/appointments", h.CreateAppointment)
	e.GET("/appointments/availability", h.CheckAvailability)
	e.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
	e.DELETE("/appointments/:id", h.DeleteAppointment)
	e.GET("/health", h.Health)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f := ListFilter{
		Date:       c.QueryParam("date"),
		Status:     c.QueryParam("status"),
		DoctorName: c.QueryParam("doctorName"),
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return internalError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Appointment %s deleted", id),
	})
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	q := AvailabilityQuery{
		DoctorName: c.QueryParam("doctorName"),
		Date:       c.QueryParam("date"),
		Time:       c.QueryParam("time"),
		ExcludeID:  c.QueryParam("excludeId"),
	}
	if raw := c.QueryParam("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "duration must be an integer")
		}
		q.Duration = &d
	}
	ok, err := h.svc.CheckAvailability(c.Request().Context(), q)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": ok})
}

func (h *Handler) Health(c echo.Context) error {
	n, err := h.svc.Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  "appointment store unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"appointments_count": n,
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return internalError(err)
	}
}

// internalError hides err from the client. The request logger reports the
// wrapped error.
func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
