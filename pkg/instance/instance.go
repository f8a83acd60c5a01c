package instance

import (
	"os"
	"strings"
)

// GetID returns the process instance identifier. CARLINE_WORKER_ID wins,
// then the hostname, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("CARLINE_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
