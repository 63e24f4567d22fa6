package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/sectionscraper/models"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Filter selects a page of stored scrapes.
type Filter struct {
	// Search matches url or title, case-insensitively.
	Search string
	Page   int
	Limit  int
}

// Scrapes stores ScrapeResults as JSON alongside a few indexed columns.
type Scrapes struct {
	db  *DB
	now func() time.Time
}

// NewScrapes creates a Scrapes service.
func NewScrapes(db *DB) *Scrapes {
	return &Scrapes{db: db, now: time.Now}
}

// Save persists result under a new id.
func (s *Scrapes) Save(ctx context.Context, result *models.ScrapeResult) (*models.StoredScrape, error) {
	if result == nil {
		return nil, errors.New("store: save: nil result")
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("store: encode result: %w", err)
	}

	rec := &models.StoredScrape{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC(),
		Result:    result,
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO scrapes (id, url, title, scraped_at, created_at, section_count, has_errors, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, result.URL, result.Meta.Title,
		result.ScrapedAt.UTC().Format(timeLayout), rec.CreatedAt.Format(timeLayout),
		len(result.Sections), len(result.Errors) > 0, string(body))
	if err != nil {
		return nil, fmt.Errorf("store: insert scrape: %w", err)
	}

	return rec, nil
}

// Get returns the scrape with id, or ErrNotFound.
func (s *Scrapes) Get(ctx context.Context, id string) (*models.StoredScrape, error) {
	var createdAt, body string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT created_at, result FROM scrapes WHERE id = ?`, id,
	).Scan(&createdAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get scrape: %w", err)
	}

	rec := &models.StoredScrape{ID: id}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("store: parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Result); err != nil {
		return nil, fmt.Errorf("store: decode result: %w", err)
	}
	return rec, nil
}

// List returns one page of summaries, newest first, and the total number of
// matching rows.
func (s *Scrapes) List(ctx context.Context, f Filter) ([]models.ScrapeSummary, int, error) {
	var where string
	var args []any
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = ` WHERE LOWER(url) LIKE ? ESCAPE '\' OR LOWER(title) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scrapes"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count scrapes: %w", err)
	}

	page, limit := max(f.Page, 1), f.Limit
	if limit < 1 {
		limit = 20
	}

	var query strings.Builder
	query.WriteString("SELECT id, url, title, scraped_at, created_at, section_count, has_errors FROM scrapes")
	query.WriteString(where)
	query.WriteString(" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?")
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := s.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list scrapes: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ScrapeSummary, 0, limit)
	for rows.Next() {
		var sum models.ScrapeSummary
		var scrapedAt, createdAt string
		if err := rows.Scan(&sum.ID, &sum.URL, &sum.Title, &scrapedAt, &createdAt,
			&sum.SectionCount, &sum.HasErrors); err != nil {
			return nil, 0, fmt.Errorf("store: scan scrape: %w", err)
		}
		if sum.ScrapedAt, err = time.Parse(timeLayout, scrapedAt); err != nil {
			return nil, 0, fmt.Errorf("store: parse scraped_at: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, 0, fmt.Errorf("store: parse created_at: %w", err)
		}
		summaries = append(summaries, sum)
	}

	return summaries, total, rows.Err()
}

// Delete removes the scrape with id, or returns ErrNotFound.
func (s *Scrapes) Delete(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, "DELETE FROM scrapes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete scrape: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete scrape: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
