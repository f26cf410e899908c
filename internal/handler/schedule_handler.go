package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"kintai/internal/export"
	"kintai/internal/model"
	"kintai/internal/policy"
	"kintai/internal/repository"
	"kintai/internal/service"
)

// ScheduleHandler exposes the schedule lifecycle.
type ScheduleHandler struct {
	svc service.ScheduleService
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(svc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// CreateScheduleRequest proposes a schedule. Username defaults to the caller.
type CreateScheduleRequest struct {
	Username  string    `json:"username" validate:"omitempty,max=64"`
	StartTime Timestamp `json:"start_time"`
	EndTime   Timestamp `json:"end_time"`
}

// UpdateScheduleRequest changes the time range of a proposed schedule.
type UpdateScheduleRequest struct {
	StartTime Timestamp `json:"start_time"`
	EndTime   Timestamp `json:"end_time"`
}

// Create godoc
// @Summary Propose a schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateScheduleRequest true "Schedule"
// @Success 201 {object} ScheduleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}
	username := req.Username
	if username == "" {
		username = actor.ID
	}

	s, err := h.svc.Create(c.Request().Context(), actor, username, req.StartTime.Time, req.EndTime.Time)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, newScheduleResponse(*s))
}

// List godoc
// @Summary List visible schedules
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param start query string false "Range start (inclusive)"
// @Param end query string false "Range end (exclusive)"
// @Param username query string false "Subject"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit"
// @Success 200 {array} ScheduleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /schedules [get]
func (h *ScheduleHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	q := repository.ScheduleQuery{Username: c.QueryParam("username")}
	if q.RangeStart, err = queryTime(c, "start"); err != nil {
		return err
	}
	if q.RangeEnd, err = queryTime(c, "end"); err != nil {
		return err
	}
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		return err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}

	list, err := h.svc.List(c.Request().Context(), actor, q)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newScheduleResponses(list))
}

// Export godoc
// @Summary Export schedules as XLSX
// @Tags schedules
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start query string true "Range start (inclusive)"
// @Param end query string true "Range end (exclusive)"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /schedules/export [get]
func (h *ScheduleHandler) Export(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	start, err := queryTime(c, "start")
	if err != nil {
		return err
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return err
	}
	if start == nil || end == nil {
		return badRequest("start and end are required")
	}

	list, err := h.svc.ListForExport(c.Request().Context(), actor, *start, *end)
	if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := export.WriteAttendance(&buf, list, start.Location()); err != nil {
		return fail(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.Filename(*start, *end)+`"`)
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// Get godoc
// @Summary Get a schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} ScheduleResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := scheduleID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newScheduleResponse(*s))
}

// Update godoc
// @Summary Edit the time range of a proposed schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Param request body UpdateScheduleRequest true "New range"
// @Success 200 {object} ScheduleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := scheduleID(c)
	if err != nil {
		return err
	}
	var req UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}
	s, err := h.svc.EditDuration(c.Request().Context(), actor, id, req.StartTime.Time, req.EndTime.Time)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newScheduleResponse(*s))
}

// Permit godoc
// @Summary Approve a proposed schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} ScheduleResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id}/permit [post]
func (h *ScheduleHandler) Permit(c echo.Context) error {
	return h.transition(c, h.svc.Approve)
}

// MarkAbsent godoc
// @Summary Mark a permitted schedule absent
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} ScheduleResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id}/absent [post]
func (h *ScheduleHandler) MarkAbsent(c echo.Context) error {
	return h.transition(c, h.svc.MarkAbsent)
}

// RevertAbsence godoc
// @Summary Reject an absence claim
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} ScheduleResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id}/absent [delete]
func (h *ScheduleHandler) RevertAbsence(c echo.Context) error {
	return h.transition(c, h.svc.RevertAbsence)
}

// Disable godoc
// @Summary Disable a schedule
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 200 {object} ScheduleResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id}/disable [post]
func (h *ScheduleHandler) Disable(c echo.Context) error {
	return h.transition(c, h.svc.Disable)
}

// Delete godoc
// @Summary Delete a never-permitted schedule
// @Tags schedules
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := scheduleID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type transitionFunc func(ctx context.Context, actor policy.Actor, id int64) (*model.Schedule, error)

func (h *ScheduleHandler) transition(c echo.Context, apply transitionFunc) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := scheduleID(c)
	if err != nil {
		return err
	}
	s, err := apply(c.Request().Context(), actor, id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newScheduleResponse(*s))
}
