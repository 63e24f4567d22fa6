package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/sectionscraper/export"
)

func main() {
	apiURL := os.Getenv("SECTIONSCRAPER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}
	// Only needed when the server has auth enabled.
	apiKey := os.Getenv("SECTIONSCRAPER_API_KEY")

	if err := server.ServeStdio(newServer(newAPIClient(apiURL, apiKey))); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(c *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"sectionscraper",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	ex := export.New()
	s.AddTool(scrapeSectionsTool(), handleScrapeSections(c, ex))
	s.AddTool(listScrapesTool(), handleListScrapes(c))
	s.AddTool(getScrapeTool(), handleGetScrape(c, ex))

	return s
}
