package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.BuildMethod)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}

func TestGetVersionString(t *testing.T) {
	versionStr := GetVersionString()

	assert.True(t, strings.HasPrefix(versionStr, "mailtriage "))
	assert.Contains(t, versionStr, Version)
}

func TestInjectedCommit(t *testing.T) {
	old := GitCommit
	t.Cleanup(func() { GitCommit = old })
	GitCommit = "0123456789abcdef"

	assert.Equal(t, "mailtriage "+Version+" (01234567)", GetVersionString())
	assert.Equal(t, "ldflags", GetInfo().BuildMethod)
	assert.False(t, IsDevelopment())
	assert.Contains(t, GetDetailedVersionString(), "Git commit: 0123456789abcdef")
}
