package engine

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/dom"
	"github.com/use-agent/sectionscraper/extract"
	"github.com/use-agent/sectionscraper/models"
	"golang.org/x/net/html/charset"
)

var errTooManyRedirects = errors.New("too many redirects")

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.code)
}

// chromeH1Spec returns a fresh Chrome-like TLS ClientHello with ALPN forced
// to http/1.1. ApplyPreset writes key shares into the spec, so each
// connection needs its own.
func chromeH1Spec() (tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return tls.ClientHelloSpec{}, err
	}
	// http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec, nil
}

// StaticFetcher performs a single browser-like GET and extracts sections
// from the returned markup. It never executes JavaScript.
type StaticFetcher struct {
	client    *http.Client
	limits    config.Limits
	userAgent string
}

// NewStaticFetcher creates a StaticFetcher whose TLS handshake mimics Chrome.
func NewStaticFetcher(limits config.Limits, userAgent string) *StaticFetcher {
	return NewStaticFetcherWithClient(&http.Client{Transport: chromeTransport(nil)}, limits, userAgent)
}

// chromeTransport dials TLS with utls. A nil roots uses the system pool.
func chromeTransport(roots *x509.CertPool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			spec, err := chromeH1Spec()
			if err != nil {
				return nil, fmt.Errorf("static: build tls spec: %w", err)
			}
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host, RootCAs: roots}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
}

// NewStaticFetcherWithClient uses client for requests. The redirect policy
// is replaced with one that honours limits.MaxRedirects.
func NewStaticFetcherWithClient(client *http.Client, limits config.Limits, userAgent string) *StaticFetcher {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	c := *client
	maxRedirects := limits.MaxRedirects
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	return &StaticFetcher{client: &c, limits: limits, userAgent: userAgent}
}

func (f *StaticFetcher) Name() string { return "static" }

// Fetch never returns an error. Transport and HTTP failures become a single
// fetch-phase record; a thin page gets a static_scrape record suggesting the
// rendering fallback.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*models.ScrapeResult, error) {
	res := models.NewScrapeResult(url, time.Now().UTC())
	res.Interactions.Pages = []string{url}

	body, err := f.get(ctx, url)
	if err != nil {
		rec := models.ErrorRecord{
			Message: err.Error(),
			Phase:   models.PhaseFetch,
			Code:    fetchErrorCode(err),
		}
		var se *statusError
		if errors.As(err, &se) {
			rec.Message = se.Error()
			rec.Status = &se.code
		}
		res.AddError(rec)
		return res, nil
	}

	doc, err := dom.Parse(body)
	if err != nil {
		res.AddError(models.ErrorRecord{Message: err.Error(), Phase: models.PhaseStaticScrape})
		return res, nil
	}
	res.Meta = extract.ExtractMeta(doc, url)
	res.Sections = extract.SegmentDocument(doc, url)

	if total := res.TotalTextLength(); total < f.limits.LowContentThreshold {
		res.AddError(models.ErrorRecord{
			Message: fmt.Sprintf("Low text content (%d chars), consider JavaScript fallback", total),
			Phase:   models.PhaseStaticScrape,
		})
	}
	return res, nil
}

// get returns the decoded UTF-8 body.
func (f *StaticFetcher) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.limits.StaticTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("static: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("static: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{code: resp.StatusCode}
	}

	r, err := decodeBody(resp)
	if err != nil {
		return "", fmt.Errorf("static: decode body: %w", err)
	}
	r, err = charset.NewReader(r, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("static: charset: %w", err)
	}
	b, err := io.ReadAll(io.LimitReader(r, f.limits.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("static: read body: %w", err)
	}
	return string(b), nil
}

// decodeBody undoes Content-Encoding. Setting Accept-Encoding by hand turns
// off the transport's transparent gzip handling.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		br := bufio.NewReader(resp.Body)
		if hdr, err := br.Peek(2); err == nil && hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

func fetchErrorCode(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, errTooManyRedirects):
		return models.ErrCodeTooManyRedirs
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrCodeTimeout
	case errors.As(err, &dnsErr):
		return models.ErrCodeDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.ErrCodeTimeout
	case errors.As(err, new(*statusError)):
		return models.ErrCodeHTTPStatus
	default:
		return models.ErrCodeFetch
	}
}
