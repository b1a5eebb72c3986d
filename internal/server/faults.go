package server

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Faults injects latency and random failures into status updates so clients
// can exercise their rollback paths against a real server.
type Faults struct {
	FailRate float64
	Latency  time.Duration

	roll func() float64
}

// NewFaults returns nil when neither knob is set.
func NewFaults(failRate float64, latency time.Duration) *Faults {
	if failRate <= 0 && latency <= 0 {
		return nil
	}
	if failRate > 1 {
		failRate = 1
	}
	return &Faults{FailRate: failRate, Latency: latency, roll: rand.Float64}
}

func (f *Faults) Middleware(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if f.Latency > 0 {
				t := time.NewTimer(f.Latency)
				select {
				case <-t.C:
				case <-c.Request().Context().Done():
					t.Stop()
					return c.Request().Context().Err()
				}
			}
			if f.FailRate > 0 && f.roll() < f.FailRate {
				log.WithField("path", c.Request().URL.Path).Info("injected failure")
				return jsonError(c, http.StatusServiceUnavailable, "injected failure")
			}
			return next(c)
		}
	}
}
