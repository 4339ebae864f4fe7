// Package storage holds helpers shared by the object storage backends.
package storage

import (
	"crypto/rand"
	"fmt"
	"path"
	"strings"
	"time"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ObjectName builds "<prefix>/<unix-ms>_<random6>.<ext>" from an uploaded file
// name. Only the lower-cased alphanumeric extension of the original survives.
func ObjectName(prefix, filename string, now time.Time) (string, error) {
	suffix, err := randomSuffix(6)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d_%s", now.UnixMilli(), suffix)
	if ext := Extension(filename); ext != "" {
		name += "." + ext
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name, nil
	}
	return prefix + "/" + name, nil
}

// Extension returns the lower-cased extension of filename stripped to [a-z0-9].
func Extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random object suffix: %w", err)
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf), nil
}
