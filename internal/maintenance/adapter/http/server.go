package http

import (
	"errors"
	"time"

	"queue-maintenance/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// NewServer builds the Fiber app serving the static bundle
func NewServer(static *StaticHandler, log logger.Logger) *fiber.App {
	httpLog := log.WithComponent("http")

	app := fiber.New(fiber.Config{
		AppName:               "queue-maintenance",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(httpLog),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(AccessLog(httpLog))
	app.Use(compress.New())

	static.RegisterRoutes(app)
	return app
}

// ErrorHandler maps handler errors to plain-text responses. Missing files
// surface as 404.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP Error", zap.String("path", c.Path()), zap.Error(err))
		} else {
			log.Warn("HTTP Error", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(code).SendString(utils.StatusMessage(code))
	}
}

// AccessLog logs every request at debug level
func AccessLog(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
