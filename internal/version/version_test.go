package version

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func withBuildVars(t *testing.T, v, commit, built, user string) {
	t.Helper()
	oldV, oldC, oldT, oldU := Version, GitCommit, BuildTime, BuildUser
	Version, GitCommit, BuildTime, BuildUser = v, commit, built, user
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, BuildUser = oldV, oldC, oldT, oldU
	})
}

func TestReleaseBuild(t *testing.T) {
	withBuildVars(t, "v1.2.0", "0123456789abcdef", "2024-03-05T10:00:00Z", "ci")

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.Equal(t, "ci", info.BuildUser)
	assert.True(t, IsRelease())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())
}

func TestFormat(t *testing.T) {
	withBuildVars(t, "v1.2.0", "0123456789abcdef", "2024-03-05", "unknown")
	info := GetBuildInfo()

	text, err := Format(info, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "syllabus v1.2.0")
	assert.Contains(t, text, "commit:   0123456789abcdef")
	assert.NotContains(t, text, "by:")

	out, err := Format(info, "json")
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "v1.2.0", decoded["version"])
	assert.NotContains(t, decoded, "build_user")

	out, err = Format(info, "yaml")
	require.NoError(t, err)
	var fromYAML BuildInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, "0123456789abcdef", fromYAML.GitCommit)

	_, err = Format(info, "xml")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	tests := map[string]bool{
		"2024-03-05T10:00:00Z": true,
		"2024-03-05 10:00:00":  true,
		"2024-03-05":           true,
		"unknown":              false,
		"":                     false,
		"yesterday":            false,
	}
	for in, ok := range tests {
		assert.Equal(t, ok, !parseTime(in).IsZero(), in)
	}
}
