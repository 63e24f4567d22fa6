// Command benchmark measures end-to-end scrape latency and section yield
// against a running sectionscraper server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/use-agent/sectionscraper/models"
)

// Sites covering static pages, docs and script-heavy apps.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"Landing", "https://go.dev"},
	{"News", "https://www.bbc.com/news"},
	{"SPA", "https://github.com/go-rod/rod"},
}

type cli struct {
	APIURL string `name:"api-url" default:"http://localhost:5000" help:"sectionscraper base URL"`
	APIKey string `name:"api-key" help:"API key when auth is enabled"`
	Runs   int    `default:"3" help:"Runs per URL for averaging"`
	Output string `default:"benchmark-results.json" help:"JSON report path"`
}

type runResult struct {
	Run        int    `json:"run"`
	ScrapeMs   int64  `json:"scrapeMs"`
	Sections   int    `json:"sections"`
	Links      int    `json:"links"`
	Images     int    `json:"images"`
	Errors     int    `json:"errors"`
	TextLength int    `json:"textLength"`
	Rendered   bool   `json:"rendered"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type urlResult struct {
	URL       string      `json:"url"`
	Label     string      `json:"label"`
	Runs      []runResult `json:"runs"`
	AvgMs     float64     `json:"avgMs"`
	AvgLength float64     `json:"avgTextLength"`
}

type report struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"apiUrl"`
	RunsPerURL int         `json:"runsPerUrl"`
	Results    []urlResult `json:"results"`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Name("benchmark"), kong.Description("Benchmark a sectionscraper server."))

	fmt.Println("=== sectionscraper benchmark ===")
	fmt.Printf("API URL:   %s\n", c.APIURL)
	fmt.Printf("Runs/URL:  %d\n\n", c.Runs)

	client := &http.Client{Timeout: 180 * time.Second}
	if err := checkAPI(client, c.APIURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", c.APIURL, err)
		os.Exit(1)
	}

	rep := report{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     c.APIURL,
		RunsPerURL: c.Runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= c.Runs; i++ {
			rr := scrapeOnce(client, c, t.URL, i)
			if rr.Success {
				fmt.Printf("  run %d: %dms  %d sections  rendered=%v\n", i, rr.ScrapeMs, rr.Sections, rr.Rendered)
			} else {
				fmt.Printf("  run %d: FAILED: %s\n", i, rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.AvgMs, ur.AvgLength = averages(ur.Runs)
		rep.Results = append(rep.Results, ur)
	}

	printTable(rep.Results)

	if err := writeJSON(c.Output, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", c.Output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func scrapeOnce(client *http.Client, c cli, url string, run int) runResult {
	rr := runResult{Run: run}

	body, _ := json.Marshal(models.ScrapeRequest{URL: url})
	req, err := http.NewRequest(http.MethodPost, c.APIURL+"/api/scrape", bytes.NewReader(body))
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	var sr models.ScrapeResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		rr.Error = fmt.Sprintf("decode: %v", err)
		return rr
	}
	if !sr.Success || sr.Result == nil {
		rr.Error = fmt.Sprintf("status %d", resp.StatusCode)
		if sr.Error != nil {
			rr.Error = sr.Error.Message
		}
		return rr
	}

	rr.Success = true
	rr.ScrapeMs = sr.ScrapeTime
	rr.Sections = sr.Stats.Sections
	rr.Links = sr.Stats.Links
	rr.Images = sr.Stats.Images
	rr.Errors = sr.Stats.Errors
	rr.TextLength = sr.Result.TotalTextLength()
	// Only the rendering path records scrolls or clicks.
	rr.Rendered = sr.Result.Interactions.Scrolls > 0 || len(sr.Result.Interactions.Clicks) > 0
	return rr
}

func averages(runs []runResult) (ms, length float64) {
	n := 0
	for _, r := range runs {
		if !r.Success {
			continue
		}
		ms += float64(r.ScrapeMs)
		length += float64(r.TextLength)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return ms / float64(n), length / float64(n)
}

func printTable(results []urlResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nLABEL\tURL\tAVG MS\tAVG TEXT\tOK")
	for _, r := range results {
		ok := 0
		for _, run := range r.Runs {
			if run.Success {
				ok++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%d/%d\n", r.Label, r.URL, r.AvgMs, r.AvgLength, ok, len(r.Runs))
	}
	w.Flush()
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
