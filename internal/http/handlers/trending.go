package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/repository"
)

type TrendingHandler struct {
	trends *repository.TrendRepository
}

func NewTrendingHandler(trends *repository.TrendRepository) *TrendingHandler {
	return &TrendingHandler{trends: trends}
}

func (h *TrendingHandler) List(c *fiber.Ctx) error {
	items, err := h.trends.ListTop(c.QueryInt("limit"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list trending manga"})
	}

	return c.JSON(fiber.Map{"items": items, "total": len(items)})
}
