package models

import "time"

// RunReport summarises one extraction run. It is exported as
// data/extraction_summary.json and returned by the REST API.
type RunReport struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Route     RouteDecision     `json:"route"`
	Source    string            `json:"source,omitempty"`
	Analysis  *PageAnalysis     `json:"analysis,omitempty"`
	Block     *BlockSignal      `json:"block,omitempty"`
	Extractor string            `json:"extractor,omitempty"`
	Result    *ExtractionResult `json:"result"`
	Downloads []DownloadOutcome `json:"downloads,omitempty"`
	Artifacts []string          `json:"artifacts,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  int64             `json:"duration_ms"`
}

// Warn appends a non-fatal problem to the report.
func (r *RunReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool       `json:"success"`
	Report  *RunReport `json:"report,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Browser  string `json:"browser"`
	InFlight int    `json:"in_flight"`
}
