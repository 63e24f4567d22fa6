package models

// ScrapeRequest is the payload for POST /api/scrape.
type ScrapeRequest struct {
	// URL is the target page. Required; must be http or https.
	URL string `json:"url"`

	// MaxAge, in milliseconds, allows serving a cached result younger than
	// this. Zero disables the cache for this request.
	MaxAge int `json:"maxAge,omitempty"`
}

// ListQuery is the query string for GET /api/scrapes.
type ListQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
}

// Defaults clamps paging values: page >= 1, 1 <= limit <= 100, default 20.
func (q *ListQuery) Defaults() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}
