package dto

// UploadResponse is returned by POST /upload. JobID is set in async mode,
// Output in sync and hybrid modes.
type UploadResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
	Output  string `json:"output,omitempty"`
}

// StatusResponse is returned by GET /status/:jobId
type StatusResponse struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Mode    string `json:"mode,omitempty"`
	Error   string `json:"error,omitempty"`
}
