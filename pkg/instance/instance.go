package instance

import (
	"os"

	"github.com/openbiocard/openbiocard-backend/pkg/env"
)

// GetID returns the process identifier used as lock owner prefix and log field.
func GetID() string {
	if id := env.Get("OBC_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
