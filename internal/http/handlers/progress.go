package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/repository"
)

type ProgressHandler struct {
	comics   *repository.ComicRepository
	progress *repository.ProgressRepository
}

func NewProgressHandler(comics *repository.ComicRepository, progress *repository.ProgressRepository) *ProgressHandler {
	return &ProgressHandler{comics: comics, progress: progress}
}

type saveProgressRequest struct {
	ChapterID   string `json:"chapterId"`
	ChapterNum  string `json:"chapterNumber"`
	CurrentPage int    `json:"currentPage"`
}

func (h *ProgressHandler) List(c *fiber.Ctx) error {
	userID := c.Params("userId")

	entries, err := h.progress.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list reading progress"})
	}

	return c.JSON(fiber.Map{"items": entries, "total": len(entries)})
}

func (h *ProgressHandler) Get(c *fiber.Ctx) error {
	userID := c.Params("userId")
	comicID, err := c.ParamsInt("comicId")
	if err != nil || comicID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid comic id"})
	}

	entry, err := h.progress.Get(userID, int64(comicID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load reading progress"})
	}
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "no reading progress for comic"})
	}

	return c.JSON(entry)
}

func (h *ProgressHandler) Save(c *fiber.Ctx) error {
	userID := c.Params("userId")
	comicID, err := c.ParamsInt("comicId")
	if err != nil || comicID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid comic id"})
	}

	var req saveProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if strings.TrimSpace(req.ChapterID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "chapterId is required"})
	}

	comic, err := h.comics.GetByID(int64(comicID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load comic"})
	}
	if comic == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "comic not found"})
	}

	entry, err := h.progress.Upsert(models.ReadingProgress{
		UserID:      userID,
		ComicID:     comic.ID,
		ChapterID:   req.ChapterID,
		ChapterNum:  req.ChapterNum,
		CurrentPage: req.CurrentPage,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to save reading progress"})
	}

	return c.JSON(entry)
}
