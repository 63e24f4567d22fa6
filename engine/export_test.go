package engine

import (
	"crypto/x509"
	"net/http"

	"github.com/use-agent/sectionscraper/config"
)

// NewStaticFetcherWithRoots builds the utls-backed fetcher trusting roots.
func NewStaticFetcherWithRoots(limits config.Limits, userAgent string, roots *x509.CertPool) *StaticFetcher {
	return NewStaticFetcherWithClient(&http.Client{Transport: chromeTransport(roots)}, limits, userAgent)
}

var ChromeH1Spec = chromeH1Spec
