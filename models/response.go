package models

import "time"

// ScrapeResponse is the response for POST /api/scrape.
type ScrapeResponse struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message,omitempty"`
	ID           string             `json:"id,omitempty"`
	ScrapeTime   int64              `json:"scrapeTime"`
	Notification NotificationStatus `json:"notification"`
	Stats        ResultStats        `json:"stats"`
	Result       *ScrapeResult      `json:"result,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cacheStatus,omitempty"`

	Timestamp time.Time    `json:"timestamp"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// NotificationStatus reports whether a completion notification went out.
type NotificationStatus struct {
	Sent       bool `json:"sent"`
	Configured bool `json:"configured"`
}

// ScrapeSummary is one row of GET /api/scrapes.
type ScrapeSummary struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ScrapedAt    time.Time `json:"scrapedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	SectionCount int       `json:"sectionCount"`
	HasErrors    bool      `json:"hasErrors"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page counts for total items.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ListResponse is the response for GET /api/scrapes.
type ListResponse struct {
	Success    bool            `json:"success"`
	Data       []ScrapeSummary `json:"data"`
	Pagination Pagination      `json:"pagination"`
	Error      *ErrorDetail    `json:"error,omitempty"`
}

// StoredScrape is a persisted ScrapeResult.
type StoredScrape struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Result    *ScrapeResult `json:"result"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status       string       `json:"status"`
	Uptime       string       `json:"uptime"`
	Database     string       `json:"database"`
	Notification bool         `json:"notificationConfigured"`
	Sessions     SessionStats `json:"sessions"`
	Version      string       `json:"version"`
}

// SessionStats is a snapshot of browser session usage.
type SessionStats struct {
	MaxSessions    int `json:"maxSessions"`
	ActiveSessions int `json:"activeSessions"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// ScrapeRecordResponse is the response for GET /api/scrapes/:id.
type ScrapeRecordResponse struct {
	Success   bool          `json:"success"`
	Data      *StoredScrape `json:"data"`
	Timestamp time.Time     `json:"timestamp"`
}

// DeleteResponse is the response for DELETE /api/scrapes/:id.
type DeleteResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

// InfoResponse is the response for GET /api.
type InfoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
