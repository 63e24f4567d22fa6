package engine_test

import (
	"compress/gzip"
	"context"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/models"
)

func testLimits() config.Limits {
	l := config.DefaultLimits()
	l.DismissPause = 0
	l.LoadMorePause = 0
	l.ScrollPause = 0
	l.StaticTimeout = 5 * time.Second
	return l
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pageWithText(n int) string {
	return `<html><head><title>T</title></head><body><main><p>` + strings.Repeat("a", n) + `</p></main></body></html>`
}

func TestStaticFetcher_Success(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html lang="en"><head><title>Home</title><link rel="canonical" href="/home"></head><body>
			<header><h1>Welcome</h1><p>`+strings.Repeat("b", 400)+`</p></header>
		</body></html>`)
	}))
	defer srv.Close()

	f := engine.NewStaticFetcher(testLimits(), "test-agent/1.0")
	res, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "static", f.Name())
	h := <-headers
	assert.Equal(t, "test-agent/1.0", h.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.5", h.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate", h.Get("Accept-Encoding"))
	assert.Equal(t, "1", h.Get("Upgrade-Insecure-Requests"))

	assert.Empty(t, res.Errors)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, models.SectionHero, res.Sections[0].Type)
	assert.Equal(t, "Home", res.Meta.Title)
	assert.Equal(t, "en", res.Meta.Language)
	require.NotNil(t, res.Meta.Canonical)
	assert.Equal(t, srv.URL+"/home", *res.Meta.Canonical)
	assert.Equal(t, []string{srv.URL + "/"}, res.Interactions.Pages)
	assert.Empty(t, res.Interactions.Clicks)
	assert.Zero(t, res.Interactions.Scrolls)
	assert.False(t, res.ScrapedAt.IsZero())
}

func TestStaticFetcher_LowContentBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		chars   int
		flagged bool
	}{
		{299, true},
		{300, false},
		{301, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.chars), func(t *testing.T) {
			t.Parallel()
			srv := serveHTML(t, pageWithText(tt.chars))

			res, err := engine.NewStaticFetcher(testLimits(), "").Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			require.Len(t, res.Sections, 1)

			if !tt.flagged {
				assert.Empty(t, res.Errors)
				return
			}
			require.Len(t, res.Errors, 1)
			assert.Equal(t, models.PhaseStaticScrape, res.Errors[0].Phase)
			assert.Equal(t, "Low text content (299 chars), consider JavaScript fallback", res.Errors[0].Message)
		})
	}
}

func TestStaticFetcher_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := engine.NewStaticFetcher(testLimits(), "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Empty(t, res.Sections)
	assert.Equal(t, []string{srv.URL}, res.Interactions.Pages)
	require.Len(t, res.Errors, 1)
	rec := res.Errors[0]
	assert.Equal(t, models.PhaseFetch, rec.Phase)
	assert.Equal(t, models.ErrCodeHTTPStatus, rec.Code)
	require.NotNil(t, rec.Status)
	assert.Equal(t, http.StatusNotFound, *rec.Status)
	assert.Equal(t, "Request failed with status code 404", rec.Message)
}

func TestStaticFetcher_Redirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/r/{n}", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.PathValue("n"))
		if n == 0 {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, pageWithText(400))
			return
		}
		http.Redirect(w, r, "/r/"+strconv.Itoa(n-1), http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := engine.NewStaticFetcher(testLimits(), "")

	res, err := f.Fetch(context.Background(), srv.URL+"/r/5")
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Sections, 1)

	res, err = f.Fetch(context.Background(), srv.URL+"/r/6")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.ErrCodeTooManyRedirs, res.Errors[0].Code)
	assert.Nil(t, res.Errors[0].Status)
}

func TestStaticFetcher_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	l := testLimits()
	l.StaticTimeout = 50 * time.Millisecond

	res, err := engine.NewStaticFetcher(l, "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.ErrCodeTimeout, res.Errors[0].Code)
	assert.Equal(t, models.PhaseFetch, res.Errors[0].Phase)
}

func TestStaticFetcher_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := engine.NewStaticFetcher(testLimits(), "").Fetch(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.ErrCodeFetch, res.Errors[0].Code)
	assert.Equal(t, []string{url}, res.Interactions.Pages)
}

func TestStaticFetcher_GzipAndCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		body := `<html><head><title>Caf` + "\xe9" + `</title></head><body><main><p>` + strings.Repeat("x", 350) + `</p></main></body></html>`
		_, _ = gz.Write([]byte(body))
	}))
	defer srv.Close()

	res, err := engine.NewStaticFetcher(testLimits(), "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "Café", res.Meta.Title)
}

func TestStaticFetcher_InvalidURL(t *testing.T) {
	t.Parallel()

	res, err := engine.NewStaticFetcher(testLimits(), "").Fetch(context.Background(), "http://bad host/")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.PhaseFetch, res.Errors[0].Phase)
}

func TestChromeH1Spec_FreshPerCall(t *testing.T) {
	t.Parallel()

	a, err := engine.ChromeH1Spec()
	require.NoError(t, err)
	b, err := engine.ChromeH1Spec()
	require.NoError(t, err)

	alpnA, alpnB := findExt[*tls.ALPNExtension](a), findExt[*tls.ALPNExtension](b)
	require.NotNil(t, alpnA)
	require.NotNil(t, alpnB)
	assert.Equal(t, []string{"http/1.1"}, alpnA.AlpnProtocols)
	assert.NotSame(t, alpnA, alpnB)

	ksA, ksB := findExt[*tls.KeyShareExtension](a), findExt[*tls.KeyShareExtension](b)
	require.NotNil(t, ksA)
	require.NotNil(t, ksB)
	assert.NotSame(t, ksA, ksB)
}

func findExt[T tls.TLSExtension](spec tls.ClientHelloSpec) T {
	var zero T
	for _, ext := range spec.Extensions {
		if e, ok := ext.(T); ok {
			return e
		}
	}
	return zero
}

func TestStaticFetcher_ConcurrentTLS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, pageWithText(400))
	}))
	defer srv.Close()

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	f := engine.NewStaticFetcherWithRoots(testLimits(), "", roots)

	const workers = 16
	results := make([]*models.ScrapeResult, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Fetch(context.Background(), srv.URL+"/")
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res, "worker %d", i)
		assert.Empty(t, res.Errors, "worker %d", i)
		assert.NotEmpty(t, res.Sections, "worker %d", i)
	}
}
