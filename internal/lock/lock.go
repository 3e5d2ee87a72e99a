// Package lock provides the single-instance run lock held while the pipeline
// touches the record store.
package lock

import (
	"errors"
	"os"
	"strings"
)

// ErrLocked is returned when another instance holds the lock.
var ErrLocked = errors.New("run is locked by another instance")

// Owner identifies the holder of a lock.
type Owner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
	Token     string `json:"token,omitempty"`
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
