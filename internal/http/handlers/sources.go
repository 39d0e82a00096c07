package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/sources"
)

type SourcesHandler struct {
	registry *sources.Registry
}

func NewSourcesHandler(registry *sources.Registry) *SourcesHandler {
	return &SourcesHandler{registry: registry}
}

func (h *SourcesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.registry.List()})
}
