package status

type StatusResponse struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	Scanning   bool   `json:"scanning"`

	// Last completed scan, absent before the first one
	LastScan *ScanSummary `json:"last_scan,omitempty"`
}

type ScanSummary struct {
	RunID       string  `json:"run_id"`
	FinishedAt  string  `json:"finished_at"`
	Duration    float64 `json:"duration_seconds"`
	Deployments int     `json:"deployments"`
	Omitted     int     `json:"omitted"`
}
