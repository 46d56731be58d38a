package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractRequest mirrors the omniscrape API request model.
type extractRequest struct {
	URL           string `json:"url"`
	Static        bool   `json:"static,omitempty"`
	DownloadMedia *bool  `json:"download_media,omitempty"`
	MaxAge        int    `json:"max_age,omitempty"`
}

// extractResponse mirrors the subset of the omniscrape API response the
// tool renders.
type extractResponse struct {
	Success     bool   `json:"success"`
	CacheStatus string `json:"cache_status"`
	Report      *struct {
		URL       string `json:"url"`
		Route     string `json:"route"`
		Extractor string `json:"extractor"`
		Analysis  *struct {
			ContentType string `json:"content_type"`
		} `json:"analysis"`
		Result *struct {
			Kind  string `json:"kind"`
			Media *struct {
				Title     string `json:"title"`
				StreamURL string `json:"stream_url"`
				Strategy  string `json:"strategy"`
				FilePath  string `json:"file_path"`
			} `json:"media"`
			Images []struct {
				URL string `json:"url"`
				Alt string `json:"alt"`
			} `json:"images"`
			Text *struct {
				Title    string `json:"title"`
				Content  string `json:"content"`
				Markdown string `json:"markdown"`
			} `json:"text"`
			Records *struct {
				Site    string              `json:"site"`
				Columns []string            `json:"columns"`
				Rows    []map[string]string `json:"rows"`
			} `json:"records"`
		} `json:"result"`
		Artifacts []string `json:"artifacts"`
		Warnings  []string `json:"warnings"`
	} `json:"report"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("OMNISCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("OMNISCRAPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "OMNISCRAPE_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"omniscrape",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_url",
		mcp.WithDescription("Extract the useful content of a web page: video metadata for media pages, image lists for galleries, article text for everything else, or listing records for supported sites."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to extract"),
		),
		mcp.WithBoolean("static",
			mcp.Description("Read the page over plain HTTP without a browser (faster, no JavaScript)"),
		),
		mcp.WithBoolean("download_media",
			mcp.Description("Download media and image files on the server, not just their URLs"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Serve a cached report younger than this many milliseconds"),
		),
	)
	s.AddTool(extractTool, handleExtractURL(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the omniscrape API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleExtractURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 15 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := extractRequest{
			URL:    url,
			Static: request.GetBool("static", false),
			MaxAge: request.GetInt("max_age", 0),
		}
		if _, ok := request.GetArguments()["download_media"]; ok {
			dl := request.GetBool("download_media", false)
			payload.DownloadMedia = &dl
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}

		var resp extractResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "extraction failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}
		return mcp.NewToolResultText(renderReport(&resp)), nil
	}
}

// renderReport formats a successful report as plain text for the model.
func renderReport(resp *extractResponse) string {
	r := resp.Report
	if r == nil || r.Result == nil {
		return "No result."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nRoute: %s\nExtractor: %s\n", r.URL, r.Route, r.Extractor)
	if r.Analysis != nil {
		fmt.Fprintf(&sb, "Content type: %s\n", r.Analysis.ContentType)
	}
	if resp.CacheStatus != "" {
		fmt.Fprintf(&sb, "Cache: %s\n", resp.CacheStatus)
	}
	sb.WriteString("\n")

	res := r.Result
	switch {
	case res.Media != nil:
		m := res.Media
		fmt.Fprintf(&sb, "Media: %s\nStrategy: %s\n", m.Title, m.Strategy)
		if m.StreamURL != "" {
			fmt.Fprintf(&sb, "Stream: %s\n", m.StreamURL)
		}
		if m.FilePath != "" {
			fmt.Fprintf(&sb, "Saved to: %s\n", m.FilePath)
		}
	case res.Records != nil:
		fmt.Fprintf(&sb, "%d records from %s\n\n", len(res.Records.Rows), res.Records.Site)
		sb.WriteString(strings.Join(res.Records.Columns, " | ") + "\n")
		for _, row := range res.Records.Rows {
			cells := make([]string, len(res.Records.Columns))
			for i, col := range res.Records.Columns {
				cells[i] = row[col]
			}
			sb.WriteString(strings.Join(cells, " | ") + "\n")
		}
	case res.Text != nil:
		fmt.Fprintf(&sb, "Title: %s\n\n", res.Text.Title)
		if res.Text.Markdown != "" {
			sb.WriteString(res.Text.Markdown)
		} else {
			sb.WriteString(res.Text.Content)
		}
		sb.WriteString("\n")
	case len(res.Images) > 0:
		fmt.Fprintf(&sb, "Found %d images:\n\n", len(res.Images))
		for _, img := range res.Images {
			if img.Alt != "" {
				fmt.Fprintf(&sb, "%s (%s)\n", img.URL, img.Alt)
			} else {
				sb.WriteString(img.URL + "\n")
			}
		}
	default:
		sb.WriteString("Nothing extracted.\n")
	}

	if len(r.Warnings) > 0 {
		sb.WriteString("\n---\nWarnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}
	return sb.String()
}
