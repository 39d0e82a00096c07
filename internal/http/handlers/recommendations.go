package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/recommend"
)

type RecommendationsHandler struct {
	service *recommend.Service
}

func NewRecommendationsHandler(service *recommend.Service) *RecommendationsHandler {
	return &RecommendationsHandler{service: service}
}

type recommendationRequest struct {
	UserID  string              `json:"userId"`
	Prompt  string              `json:"prompt"`
	History []recommend.Message `json:"history"`
}

func (h *RecommendationsHandler) Create(c *fiber.Ctx) error {
	if !h.service.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "recommendations are not configured"})
	}

	var req recommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "prompt is required"})
	}

	result, err := h.service.Recommend(c.Context(), req.UserID, req.Prompt, req.History)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "recommendation request failed"})
	}

	return c.JSON(result)
}
