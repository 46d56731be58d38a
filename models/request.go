package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required,url"`

	// Static skips the browser and reads the page over plain HTTP.
	// Default: false.
	Static bool `json:"static,omitempty"`

	// DownloadMedia fetches media and image files, not just their metadata.
	// Default: the server configuration.
	DownloadMedia *bool `json:"download_media,omitempty"`

	// Timeout is the maximum duration in seconds for the whole run.
	// Default: 120. Max: 600.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600"`

	// MaxAge allows serving a cached report younger than this many
	// milliseconds. 0 disables the cache lookup.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 120
	}
}
