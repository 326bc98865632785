package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cinelog/errs"
	"cinelog/movie"
	"cinelog/pkg/config"
	"cinelog/pkg/logger"
	"cinelog/pkg/sentry"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Server struct {
	// Router is the Echo router instance
	Router *echo.Echo

	// Addr represents the address the server will listen on
	Addr string

	// Allowed origins for CORS
	AllowOrigins []string

	// RateLimit is the number of requests per second allowed per client IP; 0 disables it.
	RateLimit int

	Logger *zap.SugaredLogger

	MovieService movie.Service

	// HealthCheck reports whether the store is reachable. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

func Default(cfg *config.Config) *Server {
	s := &Server{
		Router:       echo.New(),
		Addr:         ":8080",
		AllowOrigins: cfg.Origins(),
		RateLimit:    cfg.RateLimit,
		Logger:       logger.NOOPLogger,
	}
	if cfg.Port > 0 {
		s.Addr = fmt.Sprintf(":%d", cfg.Port)
	}

	s.Router.HideBanner = true
	s.Router.HidePort = true
	s.Router.Validator = NewValidator()
	s.Router.HTTPErrorHandler = s.handleError
	s.RegisterGlobalMiddlewares()

	s.RegisterHealthRoutes()
	s.RegisterMovieRoutes(s.Router.Group("/movies"))
	return s
}

func (s *Server) RegisterGlobalMiddlewares() {
	s.Router.Use(middleware.Recover())
	s.Router.Use(middleware.Secure())
	s.Router.Use(middleware.RequestID())
	s.Router.Use(s.requestLogger())
	s.Router.Use(middleware.Gzip())
	s.Router.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	if s.RateLimit > 0 {
		store := middleware.NewRateLimiterMemoryStore(rate.Limit(s.RateLimit))
		s.Router.Use(middleware.RateLimiter(store))
	}

	// CORS
	if len(s.AllowOrigins) > 0 {
		s.Router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.AllowOrigins,
		}))
	}
}

func (s *Server) Start() error {
	return s.Router.Start(s.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Router.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Logger.Infow("request",
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	})
}

// handleError maps application errors to HTTP status codes. Server side
// failures are logged with their cause and reported to Sentry; the caller
// only sees a generic message.
func (s *Server) handleError(err error, c echo.Context) {
	// the request logger already handled it
	if c.Response().Committed {
		return
	}

	code, message := statusAndMessage(err)
	if code >= http.StatusInternalServerError {
		fields := []interface{}{"request_id", requestID(c), "method", c.Request().Method, "uri", c.Request().RequestURI}
		if cause := errors.Unwrap(err); cause != nil {
			fields = append(fields, "cause", cause.Error())
		}
		s.Logger.Errorw(err.Error(), fields...)
		sentry.WithContext(c).Error(err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = writeError(c, code, message, "", err)
	}
	if err != nil {
		s.Logger.Errorw("cannot write error response", "error", err)
	}
}

func statusAndMessage(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch errs.ErrorCode(err) {
	case errs.EINVALID:
		return http.StatusBadRequest, errs.ErrorMessage(err)
	case errs.ENOTFOUND:
		return http.StatusNotFound, errs.ErrorMessage(err)
	case errs.ECONFLICT:
		return http.StatusConflict, errs.ErrorMessage(err)
	case errs.EUNAUTHORIZED:
		return http.StatusUnauthorized, errs.ErrorMessage(err)
	case errs.ENOTIMPLEMENTED:
		return http.StatusNotImplemented, errs.ErrorMessage(err)
	}
	return http.StatusInternalServerError, "Internal server error"
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
