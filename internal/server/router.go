package server

import (
	_ "embed"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/grimoire/internal/metrics"
)

//go:embed landing.html
var landingPage []byte

// DocsHandler serves documentation requests of the form /<package>/<subpath>.
// It allows injecting fake handlers during tests.
type DocsHandler interface {
	Handle(fiber.Ctx) error
}

// DocsHandlerFunc adapts a function to the DocsHandler interface.
type DocsHandlerFunc func(fiber.Ctx) error

// Handle makes DocsHandlerFunc satisfy DocsHandler.
func (f DocsHandlerFunc) Handle(c fiber.Ctx) error {
	return f(c)
}

// AppOptions collects the dependencies of the Fiber application.
type AppOptions struct {
	Logger  *logrus.Logger
	Docs    DocsHandler
	Metrics *metrics.Recorder
}

const contextKeyRequestID = "_grimoire_request_id"

// NewApp builds the Fiber application: landing page, favicon stub and a
// catch-all documentation route. Diagnostics routes under /-/ are registered
// separately and fall through the catch-all.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Docs == nil {
		return nil, errors.New("docs handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.Get("/", func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(landingPage)
	})
	app.Get("/favicon.ico", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return opts.Docs.Handle(c)
	})

	return app, nil
}

// requestContextMiddleware 生成请求 ID，并在请求结束后记录状态码指标。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}
		opts.Metrics.ObserveRequest(c.Method(), status)
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
