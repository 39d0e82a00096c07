package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/repository"
)

type BookmarksHandler struct {
	comics    *repository.ComicRepository
	bookmarks *repository.BookmarkRepository
}

func NewBookmarksHandler(comics *repository.ComicRepository, bookmarks *repository.BookmarkRepository) *BookmarksHandler {
	return &BookmarksHandler{comics: comics, bookmarks: bookmarks}
}

type createBookmarkRequest struct {
	Source      string   `json:"source"`
	MangaID     string   `json:"mangaId"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	CoverImage  *string  `json:"coverImage"`
	Author      *string  `json:"author"`
	Status      string   `json:"status"`
	Genres      []string `json:"genres"`
}

func (h *BookmarksHandler) List(c *fiber.Ctx) error {
	userID := c.Params("userId")

	bookmarks, err := h.bookmarks.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list bookmarks"})
	}

	return c.JSON(fiber.Map{"items": bookmarks, "total": len(bookmarks)})
}

func (h *BookmarksHandler) Create(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var req createBookmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	req.Source = strings.TrimSpace(req.Source)
	req.MangaID = strings.TrimSpace(req.MangaID)
	if req.Source == "" || req.MangaID == "" || strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "source, mangaId and title are required"})
	}

	comic, err := h.comics.Upsert(models.Comic{
		SourceKey:     req.Source,
		SourceMangaID: req.MangaID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		CoverImage:    req.CoverImage,
		Author:        req.Author,
		Status:        req.Status,
		Genres:        req.Genres,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to save comic"})
	}

	bookmark, err := h.bookmarks.Add(userID, comic.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to save bookmark"})
	}
	bookmark.Comic = comic

	return c.Status(fiber.StatusCreated).JSON(bookmark)
}

func (h *BookmarksHandler) Delete(c *fiber.Ctx) error {
	userID := c.Params("userId")
	comicID, err := c.ParamsInt("comicId")
	if err != nil || comicID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid comic id"})
	}

	removed, err := h.bookmarks.Remove(userID, int64(comicID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to remove bookmark"})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "bookmark not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
