package types

import "time"

// Scan constants
const (
	// Progress is logged every ProgressLogInterval deployments, and always
	// for the last one.
	ProgressLogInterval = 10

	// ShutdownTimeout bounds how long serve mode waits for servers to stop.
	ShutdownTimeout = 10 * time.Second

	// NoStatusData is the failure cause for a source that answered with no
	// indexing status records.
	NoStatusData = "no status data available"
)
