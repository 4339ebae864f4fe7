package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	name, err := ObjectName("reports", "Site Photo.JPG", now)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^reports/1700000000123_[a-z0-9]{6}\.jpg$`), name)

	other, err := ObjectName("reports", "Site Photo.JPG", now)
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestObjectNameWithoutPrefixOrExtension(t *testing.T) {
	name, err := ObjectName("", "blob", time.UnixMilli(5))
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^5_[a-z0-9]{6}$`), name)
}

func TestExtension(t *testing.T) {
	require.Equal(t, "png", Extension("a.PNG"))
	require.Equal(t, "jpeg", Extension("../../x.jp-eg"))
	require.Equal(t, "", Extension("noext"))
	require.Equal(t, "webp", Extension(" photo.webp "))
}
