package utils

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"
	unmatchedRoute  = "unmatched"
)

// Logger is the logging surface shared by handlers and middleware.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger

	LogRequest(req RequestLog, args ...any)
	LogError(err error, msg string, args ...any)
}

// RequestLog is one completed HTTP request. Route is the gin route template
// so that /assignment-analytics/:assignmentId groups every assignment.
type RequestLog struct {
	Method   string
	Route    string
	Path     string
	Status   int
	Latency  time.Duration
	ClientIP string
	Errors   string
}

// Level maps the response status to a log level.
func (r RequestLog) Level() slog.Level {
	switch {
	case r.Status >= 500:
		return slog.LevelError
	case r.Status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) Logger {
	return &SlogLogger{
		logger: logger,
	}
}

// NewDefaultLogger writes JSON at info level, for production.
func NewDefaultLogger() Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return NewSlogLogger(logger)
}

// NewDevelopmentLogger writes text at debug level.
func NewDevelopmentLogger() Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return NewSlogLogger(logger)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{
		logger: l.logger.With(args...),
	}
}

func (l *SlogLogger) LogRequest(req RequestLog, args ...any) {
	baseArgs := []any{
		"method", req.Method,
		"route", req.Route,
		"path", req.Path,
		"status_code", req.Status,
		"latency_ms", req.Latency.Milliseconds(),
		"client_ip", req.ClientIP,
	}
	if req.Errors != "" {
		baseArgs = append(baseArgs, "errors", req.Errors)
	}
	l.logger.Log(context.Background(), req.Level(), "HTTP Request", append(baseArgs, args...)...)
}

func (l *SlogLogger) LogError(err error, msg string, args ...any) {
	allArgs := append([]any{"error", err}, args...)
	l.logger.Error(msg, allArgs...)
}

// ContextLogger stores a request-scoped logger carrying the request id and
// route in the gin context. Handlers read it back with GetLoggerFromContext.
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID != "" {
			c.Header(requestIDHeader, requestID)
		}
		c.Set(loggerKey, logger.With(
			"request_id", requestID,
			"route", routeOf(c),
		))
		c.Next()
	}
}

// LoggerMiddleware logs every request once it completes. The level follows
// the status code.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.LogRequest(RequestLog{
			Method:   c.Request.Method,
			Route:    routeOf(c),
			Path:     c.Request.URL.Path,
			Status:   c.Writer.Status(),
			Latency:  time.Since(start),
			ClientIP: c.ClientIP(),
			Errors:   c.Errors.ByType(gin.ErrorTypePrivate).String(),
		}, "request_id", c.GetHeader(requestIDHeader))
	}
}

// GetLoggerFromContext returns the request logger set by ContextLogger, or
// fallback when there is none.
func GetLoggerFromContext(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(Logger); ok {
			return logger
		}
	}
	return fallback
}

// ToSlogLogger unwraps the slog.Logger that services log through.
func ToSlogLogger(logger Logger) *slog.Logger {
	if slogLogger, ok := logger.(*SlogLogger); ok {
		return slogLogger.logger
	}
	return slog.Default()
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
