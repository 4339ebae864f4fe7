package env

import (
	"os"
	"strings"
)

// instanceVars are checked in order: Heroku dyno, Cloud Run revision, container hostname.
var instanceVars = []string{"DYNO", "K_REVISION", "HOSTNAME"}

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process in logs.
func InstanceID() string {
	for _, key := range instanceVars {
		if id := Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
