package yamlsource

import (
	"fmt"
	"strings"
)

// Config describes a JSON catalog endpoint declaratively, so new sources
// that follow a conventional REST shape can be added without code.
type Config struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Enabled  *bool  `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
	Search   struct {
		Path       string `yaml:"path"`
		QueryParam string `yaml:"query_param"`
		LimitParam string `yaml:"limit_param"`
	} `yaml:"search"`
	Manga struct {
		Path string `yaml:"path"`
	} `yaml:"manga"`
	Chapters struct {
		Path string `yaml:"path"`
	} `yaml:"chapters"`
	Pages struct {
		Path string `yaml:"path"`
	} `yaml:"pages"`
	Popular struct {
		Path       string `yaml:"path"`
		LimitParam string `yaml:"limit_param"`
	} `yaml:"popular"`
	Response struct {
		SearchItemsPath   string `yaml:"search_items_path"`
		MangaItemPath     string `yaml:"manga_item_path"`
		ChapterItemsPath  string `yaml:"chapter_items_path"`
		PageItemsPath     string `yaml:"page_items_path"`
		PopularItemsPath  string `yaml:"popular_items_path"`
		IDField           string `yaml:"id_field"`
		TitleField        string `yaml:"title_field"`
		DescriptionField  string `yaml:"description_field"`
		CoverField        string `yaml:"cover_field"`
		AuthorField       string `yaml:"author_field"`
		StatusField       string `yaml:"status_field"`
		GenresField       string `yaml:"genres_field"`
		NumberField       string `yaml:"number_field"`
		ChapterTitleField string `yaml:"chapter_title_field"`
		PublishedAtField  string `yaml:"published_at_field"`
		ImageURLField     string `yaml:"image_url_field"`
	} `yaml:"response"`
}

func (c *Config) normalizeAndValidate() error {
	c.Key = strings.TrimSpace(c.Key)
	c.Name = strings.TrimSpace(c.Name)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Language = strings.TrimSpace(c.Language)

	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if strings.TrimSpace(c.Search.Path) == "" {
		return fmt.Errorf("search.path is required")
	}
	if strings.TrimSpace(c.Chapters.Path) == "" {
		return fmt.Errorf("chapters.path is required")
	}
	if !strings.Contains(c.Chapters.Path, "{id}") {
		return fmt.Errorf("chapters.path must contain a {id} placeholder")
	}
	if strings.TrimSpace(c.Pages.Path) == "" {
		return fmt.Errorf("pages.path is required")
	}
	if !strings.Contains(c.Pages.Path, "{id}") {
		return fmt.Errorf("pages.path must contain a {id} placeholder")
	}
	if strings.TrimSpace(c.Manga.Path) != "" && !strings.Contains(c.Manga.Path, "{id}") {
		return fmt.Errorf("manga.path must contain a {id} placeholder")
	}

	if c.Language == "" {
		c.Language = "en"
	}
	if strings.TrimSpace(c.Search.QueryParam) == "" {
		c.Search.QueryParam = "q"
	}
	if strings.TrimSpace(c.Search.LimitParam) == "" {
		c.Search.LimitParam = "limit"
	}
	if strings.TrimSpace(c.Popular.LimitParam) == "" {
		c.Popular.LimitParam = "limit"
	}

	if strings.TrimSpace(c.Response.SearchItemsPath) == "" {
		c.Response.SearchItemsPath = "items"
	}
	if strings.TrimSpace(c.Response.MangaItemPath) == "" {
		c.Response.MangaItemPath = "item"
	}
	if strings.TrimSpace(c.Response.ChapterItemsPath) == "" {
		c.Response.ChapterItemsPath = "items"
	}
	if strings.TrimSpace(c.Response.PageItemsPath) == "" {
		c.Response.PageItemsPath = "items"
	}
	if strings.TrimSpace(c.Response.PopularItemsPath) == "" {
		c.Response.PopularItemsPath = c.Response.SearchItemsPath
	}
	if strings.TrimSpace(c.Response.IDField) == "" {
		c.Response.IDField = "id"
	}
	if strings.TrimSpace(c.Response.TitleField) == "" {
		c.Response.TitleField = "title"
	}
	if strings.TrimSpace(c.Response.DescriptionField) == "" {
		c.Response.DescriptionField = "description"
	}
	if strings.TrimSpace(c.Response.CoverField) == "" {
		c.Response.CoverField = "coverImage"
	}
	if strings.TrimSpace(c.Response.AuthorField) == "" {
		c.Response.AuthorField = "author"
	}
	if strings.TrimSpace(c.Response.StatusField) == "" {
		c.Response.StatusField = "status"
	}
	if strings.TrimSpace(c.Response.GenresField) == "" {
		c.Response.GenresField = "genres"
	}
	if strings.TrimSpace(c.Response.NumberField) == "" {
		c.Response.NumberField = "number"
	}
	if strings.TrimSpace(c.Response.ChapterTitleField) == "" {
		c.Response.ChapterTitleField = "title"
	}
	if strings.TrimSpace(c.Response.PublishedAtField) == "" {
		c.Response.PublishedAtField = "publishedAt"
	}
	if strings.TrimSpace(c.Response.ImageURLField) == "" {
		c.Response.ImageURLField = "url"
	}

	return nil
}

func (c *Config) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
