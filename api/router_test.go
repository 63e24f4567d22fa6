package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/sectionscraper/api"
	"github.com/use-agent/sectionscraper/cache"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/models"
	"github.com/use-agent/sectionscraper/store"
	"github.com/use-agent/sectionscraper/webhook"
)

type fakeScraper struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeScraper) Scrape(_ context.Context, url string) *models.ScrapeResult {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	res := models.NewScrapeResult(url, time.Now())
	res.Meta.Title = "Example Domain"
	res.Sections = append(res.Sections, models.Section{
		ID:        "sec-1",
		Type:      models.SectionHero,
		Label:     "Welcome",
		SourceURL: url,
		Content: models.Content{
			Text:   "Welcome to the example",
			Links:  []models.Link{{Text: "Docs", Href: url + "docs"}},
			Images: []models.Image{{Src: url + "a.png"}},
		},
	})
	res.Interactions.Pages = append(res.Interactions.Pages, url)
	return res
}

func (f *fakeScraper) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type fakeNotifier struct {
	configured bool
	deliverErr error

	mu     sync.Mutex
	events []*webhook.Event
}

func (f *fakeNotifier) Configured() bool { return f.configured }

func (f *fakeNotifier) Masked() webhook.MaskedConfig {
	return webhook.MaskedConfig{Configured: f.configured}
}

func (f *fakeNotifier) Deliver(_ context.Context, ev *webhook.Event) error {
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.record(ev)
	return nil
}

func (f *fakeNotifier) DeliverAsync(ev *webhook.Event) <-chan struct{} {
	f.record(ev)
	done := make(chan struct{})
	close(done)
	return done
}

func (f *fakeNotifier) record(ev *webhook.Event) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeNotifier) Events() []*webhook.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*webhook.Event(nil), f.events...)
}

type fixture struct {
	router   http.Handler
	scraper  *fakeScraper
	notifier *fakeNotifier
	db       *store.DB
}

func newFixture(t *testing.T, mutate func(*config.Config, *api.Deps)) *fixture {
	t.Helper()

	db := store.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	c := cache.New(10)
	t.Cleanup(c.Close)

	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 0

	f := &fixture{
		scraper:  &fakeScraper{},
		notifier: &fakeNotifier{},
		db:       db,
	}
	deps := api.Deps{
		Scraper:   f.scraper,
		Store:     store.NewScrapes(db),
		DB:        db,
		Notifier:  f.notifier,
		Cache:     c,
		StartTime: time.Now(),
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	f.router = api.NewRouter(deps, cfg)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		w := f.do(t, http.MethodGet, "/healthz", "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[models.HealthResponse](t, w)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "connected", resp.Database)
		assert.False(t, resp.Notification)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("degraded when database is closed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		require.NoError(t, f.db.Close())

		resp := decode[models.HealthResponse](t, f.do(t, http.MethodGet, "/healthz", ""))
		assert.Equal(t, "degraded", resp.Status)
	})
}

func TestInfo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.InfoResponse](t, w)
	assert.Equal(t, "POST /api/scrape", resp.Endpoints["scrape"])
}

func TestScrape_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing body", `{}`, "Provide a valid 'url'"},
		{"blank url", `{"url":"   "}`, "Provide a valid 'url'"},
		{"non-string url", `{"url":42}`, "Provide a valid 'url'"},
		{"ftp scheme", `{"url":"ftp://example.com"}`, "Only http(s) URLs are supported"},
		{"no scheme", `{"url":"example.com"}`, "Only http(s) URLs are supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			w := f.do(t, http.MethodPost, "/api/scrape", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[models.ErrorResponse](t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.msg)
			assert.Empty(t, f.scraper.Calls())
		})
	}
}

func TestScrape_Success(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{configured: true}
	f := newFixture(t, func(_ *config.Config, d *api.Deps) { d.Notifier = notifier })

	w := f.do(t, http.MethodPost, "/api/scrape", `{"url":"  HTTPS://example.com/  "}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ScrapeResponse](t, w)
	assert.True(t, resp.Success)
	assert.NoError(t, uuid.Validate(resp.ID))
	assert.Equal(t, models.ResultStats{Sections: 1, Images: 1, Links: 1, Errors: 0}, resp.Stats)
	assert.True(t, resp.Notification.Configured)
	assert.True(t, resp.Notification.Sent)
	assert.Empty(t, resp.CacheStatus)
	assert.Equal(t, []string{"HTTPS://example.com/"}, f.scraper.Calls())

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, webhook.EventScrapeCompleted, events[0].Type)
	data := events[0].Data.(webhook.CompletedData)
	assert.Equal(t, resp.ID, data.ID)
}

func TestScrape_NotificationNotConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	resp := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/"}`))

	assert.False(t, resp.Notification.Sent)
	assert.False(t, resp.Notification.Configured)
	assert.Empty(t, f.notifier.Events())
}

func TestScrape_Cache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/","maxAge":60000}`))
	assert.Equal(t, "miss", first.CacheStatus)

	second := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/","maxAge":60000}`))
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.scraper.Calls(), 1)

	third := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/"}`))
	assert.Empty(t, third.CacheStatus)
	assert.Len(t, f.scraper.Calls(), 2)
}

type failingSaveStore struct {
	*store.Scrapes
	fail atomic.Bool
}

func (s *failingSaveStore) Save(ctx context.Context, r *models.ScrapeResult) (*models.StoredScrape, error) {
	if s.fail.Load() {
		return nil, errors.New("disk full")
	}
	return s.Scrapes.Save(ctx, r)
}

func TestScrape_SaveFailureKeepsCachedID(t *testing.T) {
	t.Parallel()

	var st *failingSaveStore
	f := newFixture(t, func(_ *config.Config, d *api.Deps) {
		st = &failingSaveStore{Scrapes: d.Store.(*store.Scrapes)}
		d.Store = st
	})

	first := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/"}`))
	require.NotEmpty(t, first.ID)

	st.fail.Store(true)
	unsaved := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/"}`))
	assert.True(t, unsaved.Success)
	assert.Empty(t, unsaved.ID)

	hit := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"https://example.com/","maxAge":60000}`))
	assert.Equal(t, "hit", hit.CacheStatus)
	assert.Equal(t, first.ID, hit.ID)
	assert.Len(t, f.scraper.Calls(), 2)
}

func TestScrapes_Lifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	var ids []string
	for _, u := range []string{"https://a.com/", "https://b.com/", "https://c.com/"} {
		resp := decode[models.ScrapeResponse](t, f.do(t, http.MethodPost, "/api/scrape", `{"url":"`+u+`"}`))
		ids = append(ids, resp.ID)
	}

	list := decode[models.ListResponse](t, f.do(t, http.MethodGet, "/api/scrapes?page=1&limit=2", ""))
	assert.True(t, list.Success)
	require.Len(t, list.Data, 2)
	assert.Equal(t, ids[2], list.Data[0].ID)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2, HasNext: true, HasPrev: false}, list.Pagination)

	search := decode[models.ListResponse](t, f.do(t, http.MethodGet, "/api/scrapes?search=b.com", ""))
	require.Len(t, search.Data, 1)
	assert.Equal(t, ids[1], search.Data[0].ID)
	assert.Equal(t, 20, search.Pagination.Limit)

	w := f.do(t, http.MethodGet, "/api/scrapes/"+ids[0], "")
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[models.ScrapeRecordResponse](t, w)
	assert.Equal(t, "https://a.com/", rec.Data.Result.URL)

	w = f.do(t, http.MethodGet, "/api/scrapes/"+ids[0]+"/markdown", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "# Example Domain")

	w = f.do(t, http.MethodDelete, "/api/scrapes/"+ids[0], "")
	require.Equal(t, http.StatusOK, w.Code)
	del := decode[models.DeleteResponse](t, w)
	assert.Equal(t, ids[0], del.ID)

	w = f.do(t, http.MethodGet, "/api/scrapes/"+ids[0], "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, "/api/scrapes/"+ids[0], "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScrapes_InvalidID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	for _, path := range []string{
		"/api/scrapes/not-a-uuid",
		"/api/scrapes/not-a-uuid/markdown",
	} {
		w := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	w := f.do(t, http.MethodDelete, "/api/scrapes/123", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("test delivery without configuration", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		w := f.do(t, http.MethodPost, "/api/notify/test", "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[models.ErrorResponse](t, w)
		assert.Equal(t, models.ErrCodeNotify, resp.Error.Code)
	})

	t.Run("test delivery failure", func(t *testing.T) {
		t.Parallel()

		n := &fakeNotifier{configured: true, deliverErr: errors.New("endpoint returned status 500")}
		f := newFixture(t, func(_ *config.Config, d *api.Deps) { d.Notifier = n })

		w := f.do(t, http.MethodPost, "/api/notify/test", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("test delivery success", func(t *testing.T) {
		t.Parallel()

		n := &fakeNotifier{configured: true}
		f := newFixture(t, func(_ *config.Config, d *api.Deps) { d.Notifier = n })

		w := f.do(t, http.MethodPost, "/api/notify/test", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, n.Events(), 1)
		assert.Equal(t, webhook.EventScrapeTest, n.Events()[0].Type)
	})

	t.Run("config", func(t *testing.T) {
		t.Parallel()

		n := &fakeNotifier{configured: true}
		f := newFixture(t, func(_ *config.Config, d *api.Deps) { d.Notifier = n })

		w := f.do(t, http.MethodGet, "/api/notify/config", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"configured":true`)
	})
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/nope", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "Cannot GET /nope", resp.Error.Message)
}

func TestAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.Config, _ *api.Deps) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []string{"secret-key"}
	})

	w := f.do(t, http.MethodGet, "/api/scrapes", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/scrapes", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/scrapes", "", "X-API-Key", "secret-key")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/scrapes", "", "Authorization", "Bearer secret-key")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.Config, _ *api.Deps) {
		cfg.RateLimit.RequestsPerSecond = 0.001
		cfg.RateLimit.Burst = 1
	})

	w := f.do(t, http.MethodGet, "/api/scrapes", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/scrapes", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, models.ErrCodeRateLimited, resp.Error.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.Config, _ *api.Deps) {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	})

	w := f.do(t, http.MethodOptions, "/api/scrape", "", "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(t, http.MethodGet, "/healthz", "", "Origin", "http://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
