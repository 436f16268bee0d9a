package instance

import (
	"os"

	"github.com/pennyekart/pennyekart-backend/pkg/env"
)

// GetID returns the worker instance identifier: PENNYEKART_WORKER_ID, then
// the hostname, then a fixed default.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker-0"
	}
	return env.Get("WORKER_ID", host)
}
