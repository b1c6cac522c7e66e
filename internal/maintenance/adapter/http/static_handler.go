package http

import (
	"path/filepath"

	"queue-maintenance/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// StaticHandler serves a prebuilt single-page application: existing files are
// returned as-is and every other path gets the entry page, leaving routing to
// the client.
type StaticHandler struct {
	root   string
	index  string
	logger logger.Logger
}

// NewStaticHandler serves files below root with index as the fallback page
func NewStaticHandler(root, index string, log logger.Logger) *StaticHandler {
	return &StaticHandler{
		root:   root,
		index:  index,
		logger: log.WithComponent("static-server"),
	}
}

// RegisterRoutes mounts the asset handler and the catch-all fallback
func (h *StaticHandler) RegisterRoutes(app *fiber.App) {
	// Static falls through to the next handler when no file matches.
	app.Static("/", h.root, fiber.Static{
		Index:         h.index,
		CacheDuration: 0,
	})
	app.Get("*", h.ServeIndex)
}

// ServeIndex returns the entry page
func (h *StaticHandler) ServeIndex(c *fiber.Ctx) error {
	return c.SendFile(h.IndexPath())
}

// IndexPath is the on-disk location of the entry page
func (h *StaticHandler) IndexPath() string {
	return filepath.Join(h.root, h.index)
}
