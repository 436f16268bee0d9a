package env

import (
	"os"
	"strings"
)

const prefix = "PENNYEKART_"

// Get returns PENNYEKART_<key> when set, then the bare key, then fallback.
// It serves settings read before config.Load runs, such as the log format.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, prefix)
	if val := strings.TrimSpace(os.Getenv(prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
