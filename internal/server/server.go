// Package server is the reference task API the board talks to.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"taskboard/internal/store"
)

// Options configures New.
type Options struct {
	// JWTSecret enables HS256 bearer auth on /api/v1 when non-empty.
	JWTSecret string
	// FailRate is the probability (0..1) that a status update is rejected with 503.
	FailRate float64
	// Latency delays every status update.
	Latency time.Duration
}

// New builds the echo instance with middleware and routes.
func New(repo store.Repository, opts Options, log logrus.FieldLogger) *echo.Echo {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger(log))

	var auth *Auth
	if opts.JWTSecret != "" {
		auth = NewAuth(opts.JWTSecret)
	}
	faults := NewFaults(opts.FailRate, opts.Latency)
	Register(e, repo, auth, faults, log)
	return e
}

// Run serves e on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("task api listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("task api stopped")
	return nil
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			entry := log.WithFields(logrus.Fields{
				"method":  req.Method,
				"path":    req.URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			})
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Debug("request")
			}
			return nil
		}
	}
}
