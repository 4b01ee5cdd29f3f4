package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/webhooks"
)

const (
	CallbackPath = "/webhook/smileid"
	HealthPath   = "/webhook/health"
	TestPath     = "/webhook/test"

	ServiceName = "SmileID Webhook Server"
)

type routerConfig struct {
	logger core.Logger
	now    func() time.Time
}

type Option func(*routerConfig)

func WithLogger(logger core.Logger) Option {
	return func(c *routerConfig) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *routerConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func Router(handler webhooks.Handler, opts ...Option) *echo.Echo {
	cfg := routerConfig{now: core.SystemClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.HTTPErrorHandler = DefaultHTTPErrorHandler

	e.POST(CallbackPath, Callback(handler, cfg.logger, cfg.now))
	e.GET(HealthPath, Health(cfg.now))
	e.POST(TestPath, TestEcho(cfg.logger))

	return e
}
