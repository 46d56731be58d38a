package models

// Download folders under the downloads root.
const (
	FolderVideo  = "video"
	FolderImages = "images"
	FolderData   = "data"
)

// DownloadTask is one file to fetch into Folder under the downloads root.
type DownloadTask struct {
	SourceURL string
	Folder    string
	Filename  string
}

// DownloadOutcome is the per-item result of a download. Exactly one of
// Path and Err is set.
type DownloadOutcome struct {
	URL  string `json:"url"`
	Path string `json:"path,omitempty"`
	Err  error  `json:"-"`
	// Error mirrors Err for JSON output.
	Error string `json:"error,omitempty"`
}

// NewDownloadOutcome builds an outcome, mirroring err into its JSON field.
func NewDownloadOutcome(url, path string, err error) DownloadOutcome {
	o := DownloadOutcome{URL: url, Path: path, Err: err}
	if err != nil {
		o.Path = ""
		o.Error = err.Error()
	}
	return o
}
