package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/models"
	"github.com/use-agent/sectionscraper/store"
)

// ListScrapes returns a handler for GET /api/scrapes.
func ListScrapes(st ScrapeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.ListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, "page and limit must be integers")
			return
		}
		q.Defaults()

		items, total, err := st.List(c.Request.Context(), store.Filter{
			Search: q.Search,
			Page:   q.Page,
			Limit:  q.Limit,
		})
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to fetch saved scrapes", err))
			return
		}

		c.JSON(http.StatusOK, models.ListResponse{
			Success:    true,
			Data:       items,
			Pagination: models.NewPagination(q.Page, q.Limit, total),
		})
	}
}

// GetScrape returns a handler for GET /api/scrapes/:id.
func GetScrape(st ScrapeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := loadScrape(c, st)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.ScrapeRecordResponse{
			Success:   true,
			Data:      rec,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ScrapeMarkdown returns a handler for GET /api/scrapes/:id/markdown.
func ScrapeMarkdown(st ScrapeStore, ex *export.Exporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := loadScrape(c, st)
		if !ok {
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(ex.Markdown(rec.Result)))
	}
}

// DeleteScrape returns a handler for DELETE /api/scrapes/:id.
func DeleteScrape(st ScrapeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := scrapeID(c)
		if !ok {
			return
		}
		if err := st.Delete(c.Request.Context(), id); err != nil {
			respondStoreError(c, err, "failed to delete scrape")
			return
		}
		c.JSON(http.StatusOK, models.DeleteResponse{
			Success:   true,
			Message:   "Scrape deleted successfully",
			ID:        id,
			DeletedAt: time.Now().UTC(),
		})
	}
}

func loadScrape(c *gin.Context, st ScrapeStore) (*models.StoredScrape, bool) {
	id, ok := scrapeID(c)
	if !ok {
		return nil, false
	}
	rec, err := st.Get(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "failed to fetch scrape")
		return nil, false
	}
	return rec, true
}

// scrapeID validates the :id path parameter and writes a 400 when it is not
// a UUID.
func scrapeID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		badRequest(c, "Invalid ID format. Must be a UUID.")
		return "", false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "Scrape result not found", err))
		return
	}
	respondError(c, models.NewScrapeError(models.ErrCodeStorage, msg, err))
}
