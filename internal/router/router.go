package router

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	apperrors "kintai/internal/errors"
	"kintai/internal/handler"
	"kintai/internal/logging"
	"kintai/internal/metrics"
	"kintai/internal/service"
)

// Handlers groups the HTTP handlers served under /api.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Schedules *handler.ScheduleHandler
}

// HealthFunc reports whether backing stores are reachable.
type HealthFunc func(ctx context.Context) error

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	authService service.AuthService,
	h Handlers,
	health HealthFunc,
	log *zap.Logger,
) {
	log = logging.OrNop(log)

	e.HTTPErrorHandler = ErrorHandler(log)
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		if health != nil {
			if err := health(c.Request().Context()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/login", h.Auth.Login)

	// Secured routes (require a bearer token)
	secured := api.Group("", BearerAuth(authService))

	secured.POST("/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)
	secured.PUT("/me/password", h.Auth.ChangePassword)

	users := secured.Group("/users", handler.RequireAdmin)
	users.GET("", h.Users.ListUsers)
	users.POST("", h.Users.CreateUser)
	users.DELETE("/:id", h.Users.DeleteUser)

	schedules := secured.Group("/schedules")
	schedules.POST("", h.Schedules.Create)
	schedules.GET("", h.Schedules.List)
	schedules.GET("/export", h.Schedules.Export, handler.RequireAdmin)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.PUT("/:id", h.Schedules.Update)
	schedules.DELETE("/:id", h.Schedules.Delete)
	schedules.POST("/:id/permit", h.Schedules.Permit)
	schedules.POST("/:id/absent", h.Schedules.MarkAbsent)
	schedules.DELETE("/:id/absent", h.Schedules.RevertAbsence)
	schedules.POST("/:id/disable", h.Schedules.Disable)
}

// BearerAuth verifies the Authorization header through the auth service and
// stores the claims under handler.ClaimsContextKey. Every failure is a 401.
func BearerAuth(authService service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: handler.ClaimsContextKey,
		// No prefix: the whole header goes to the token service, which
		// matches the scheme case-insensitively.
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ParseTokenFunc: func(c echo.Context, header string) (interface{}, error) {
			claims, err := authService.Authenticate(c.Request().Context(), header)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			mapped := apperrors.MapErrorToHTTP(apperrors.ErrAuthentication)
			return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
