package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/sources"
)

// CatalogHandler exposes cross-source discovery and reading endpoints.
type CatalogHandler struct {
	service *aggregator.Service
}

func NewCatalogHandler(service *aggregator.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "query parameter q is required"})
	}

	results, err := h.service.Search(c.Context(), query, c.QueryInt("limit"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(fiber.Map{"items": results, "total": len(results)})
}

func (h *CatalogHandler) Popular(c *fiber.Ctx) error {
	results := h.service.Popular(c.Context(), c.QueryInt("limit"))
	return c.JSON(fiber.Map{"items": results, "total": len(results)})
}

func (h *CatalogHandler) GetManga(c *fiber.Ctx) error {
	sourceKey := c.Params("source")
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "query parameter id is required"})
	}

	manga, err := h.service.Manga(c.Context(), sourceKey, id)
	if err != nil {
		return catalogError(c, err)
	}

	return c.JSON(manga)
}

func (h *CatalogHandler) GetChapters(c *fiber.Ctx) error {
	sourceKey := c.Params("source")
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "query parameter id is required"})
	}

	req := aggregator.ChaptersRequest{
		SourceKey: sourceKey,
		MangaID:   id,
		Title:     c.Query("title"),
	}
	for _, alias := range c.Context().QueryArgs().PeekMulti("alias") {
		req.Aliases = append(req.Aliases, string(alias))
	}

	chapters, err := h.service.Chapters(c.Context(), req)
	if err != nil {
		return catalogError(c, err)
	}

	return c.JSON(fiber.Map{"items": chapters, "total": len(chapters)})
}

func (h *CatalogHandler) GetPages(c *fiber.Ctx) error {
	sourceKey := c.Params("source")
	chapterID := c.Query("chapterId")
	if chapterID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "query parameter chapterId is required"})
	}

	pages, err := h.service.Pages(c.Context(), sourceKey, chapterID)
	if err != nil {
		return catalogError(c, err)
	}

	return c.JSON(fiber.Map{"items": pages, "total": len(pages)})
}

func catalogError(c *fiber.Ctx, err error) error {
	if errors.Is(err, sources.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "not found"})
	}
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
}
