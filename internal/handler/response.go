package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"kintai/internal/auth"
	apperrors "kintai/internal/errors"
	"kintai/internal/model"
	"kintai/internal/policy"
)

// ClaimsContextKey is where the bearer middleware stores *auth.Claims.
const ClaimsContextKey = "user"

// fail converts a service error into an echo error carrying the mapped body.
// The cause stays attached for logging.
func fail(err error) *echo.HTTPError {
	mapped := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse()).SetInternal(err)
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: msg,
		Code:  "VALIDATION_ERROR",
	})
}

// ClaimsFrom returns the verified claims of the request.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func actorFrom(c echo.Context) (policy.Actor, error) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return policy.Actor{}, fail(apperrors.ErrAuthentication)
	}
	return policy.Actor{ID: claims.User, IsAdmin: claims.Admin}, nil
}

// RequireAdmin rejects callers whose token does not carry the admin flag.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return fail(apperrors.ErrForbidden)
		}
		return next(c)
	}
}

func scheduleID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid schedule id")
	}
	return id, nil
}

// ScheduleResponse is a schedule snapshot with its decoded state.
type ScheduleResponse struct {
	model.Schedule
	State string `json:"state"`
}

func newScheduleResponse(s model.Schedule) ScheduleResponse {
	return ScheduleResponse{Schedule: s, State: s.StateName()}
}

func newScheduleResponses(list []model.Schedule) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, newScheduleResponse(s))
	}
	return out
}

// Timestamp accepts RFC 3339 and zone-less ISO 8601 values; the latter are
// read as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s into a time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("timestamp must be a string")
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return nil, badRequest(name + ": " + err.Error())
	}
	return &t, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(name + " must be a non-negative integer")
	}
	return n, nil
}
