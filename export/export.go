// Package export writes run artifacts as JSON and CSV under the downloads
// tree.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/use-agent/omniscrape/models"
)

// Well-known artifact paths, relative to the downloads root.
var (
	SummaryPath = filepath.Join(models.FolderData, "extraction_summary.json")
	ArticlePath = filepath.Join(models.FolderData, "article.json")
	RecordsJSON = filepath.Join(models.FolderData, "records.json")
	RecordsCSV  = filepath.Join(models.FolderData, "records.csv")
)

// Exporter writes files relative to a base directory.
type Exporter struct {
	baseDir string
}

func New(baseDir string) *Exporter {
	return &Exporter{baseDir: baseDir}
}

// BaseDir returns the downloads root.
func (e *Exporter) BaseDir() string { return e.baseDir }

// ToJSON writes v as indented JSON to relPath and returns the full path.
func (e *Exporter) ToJSON(v any, relPath string) (string, error) {
	path, f, err := e.create(relPath)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return "", models.NewScrapeError(models.ErrCodeExportFailed, "encoding json failed", err)
	}
	if err := f.Close(); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExportFailed, "writing json failed", err)
	}
	return path, nil
}

// ToCSV writes a header of columns followed by one line per row. Missing
// row values are written as empty cells.
func (e *Exporter) ToCSV(columns []string, rows []models.Record, relPath string) (string, error) {
	path, f, err := e.create(relPath)
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return "", models.NewScrapeError(models.ErrCodeExportFailed, "writing csv failed", err)
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			line[i] = row[c]
		}
		if err := w.Write(line); err != nil {
			f.Close()
			return "", models.NewScrapeError(models.ErrCodeExportFailed, "writing csv failed", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", models.NewScrapeError(models.ErrCodeExportFailed, "writing csv failed", err)
	}
	if err := f.Close(); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExportFailed, "writing csv failed", err)
	}
	return path, nil
}

func (e *Exporter) create(relPath string) (string, *os.File, error) {
	path := filepath.Join(e.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, models.NewScrapeError(models.ErrCodeExportFailed, "cannot create export directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", nil, models.NewScrapeError(models.ErrCodeExportFailed, "cannot create export file", err)
	}
	return path, f, nil
}
