package queue

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/pkg/pagination"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.BookAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.GET("/appointments/:id/queue", h.GetQueueStatus)
	api.PATCH("/appointments/:id/status", h.UpdatePatientStatus)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.POST("/appointments/:id/complete", h.CompleteAppointment)
	api.GET("/doctors/:id/queue", h.GetSlotQueue)
}

type bookRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	PatientID       uuid.UUID `json:"patient_id" validate:"required"`
	SlotDate        string    `json:"slot_date" validate:"required,datetime=2006-01-02"`
	SlotTime        string    `json:"slot_time" validate:"required"`
	PatientName     string    `json:"patient_name" validate:"required"`
	PatientEmail    string    `json:"patient_email" validate:"required,email"`
	PatientAddress  *string   `json:"patient_address"`
	DoctorName      string    `json:"doctor_name" validate:"required"`
	DoctorSpecialty *string   `json:"doctor_specialty"`
	DoctorAddress   *string   `json:"doctor_address"`
	Amount          int       `json:"amount"`
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a := &Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		SlotDate:        req.SlotDate,
		SlotTime:        req.SlotTime,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientAddress:  req.PatientAddress,
		DoctorName:      req.DoctorName,
		DoctorSpecialty: req.DoctorSpecialty,
		DoctorAddress:   req.DoctorAddress,
		Amount:          req.Amount,
	}
	if err := h.svc.Book(c.Request().Context(), a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return notFoundOr(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDate(c.Request().Context(), date, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// GetQueueStatus is the client read path: position, timing and status are
// recomputed from the store on every call.
func (h *Handler) GetQueueStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	st, err := h.svc.Status(c.Request().Context(), id)
	if err != nil {
		return notFoundOr(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, st)
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=waiting on-my-way arrived in-consultation completed"`
}

func (h *Handler) UpdatePatientStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPatientStatus(c.Request().Context(), id, req.Status); err != nil {
		return notFoundOr(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return notFoundOr(err, "appointment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Complete(c.Request().Context(), id); err != nil {
		return notFoundOr(err, "appointment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSlotQueue returns the ordered active queue for one bucket (staff view).
func (h *Handler) GetSlotQueue(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date := c.QueryParam("date")
	slotTime := c.QueryParam("time")
	if date == "" || slotTime == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date and time are required")
	}
	items, err := h.svc.SlotQueue(c.Request().Context(), SlotKey{DoctorID: doctorID, Date: date, Time: slotTime})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	pg := pagination.FromContext(c)
	total := len(items)
	if pg.Offset < len(items) {
		end := pg.Offset + pg.Limit
		if end > len(items) {
			end = len(items)
		}
		items = items[pg.Offset:end]
	} else {
		items = nil
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
