// Package testutils holds fixtures shared by package tests: sample course
// trees on disk and in memory, and test configurations.
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/config"
)

// FixedTime is the modification time given to in-memory fixture files.
var FixedTime = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

// MDX renders a content file with a front matter block.
func MDX(title string, tags []string, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	if len(tags) > 0 {
		b.WriteString("tags:\n")
		for _, t := range tags {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String()
}

// SampleCourse is the go-basics fixture: three topics, one with two
// subtopics, an image directory and a stray README that must be ignored.
func SampleCourse() map[string]string {
	return map[string]string{
		"index.mdx": `---
title: Go Basics
tags: [go, beginner]
authors:
  - name: Ada
    link: https://example.com/ada
  - Grace
---
Welcome to **Go Basics**.
`,
		"01.mdx":        MDX("Installing Go", nil, "Download the toolchain.\n"),
		"0101.mdx":      MDX("On Linux", nil, "Use the tarball.\n"),
		"0102.mdx":      MDX("On macOS", []string{"macos"}, "Use the pkg installer.\n"),
		"02.mdx":        MDX("Hello World", nil, "<img src=\"hello.png\" alt=\"Output\" />\n"),
		"03.mdx":        MDX("Packages", nil, "<Youtube src=\"https://www.youtube.com/embed/xyz\" />\n"),
		"README.md":     "not content\n",
		"img/hello.png": "png-bytes",
	}
}

// CourseFS builds an in-memory content root from course id → files.
func CourseFS(courses map[string]map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for id, files := range courses {
		for name, body := range files {
			fsys[id+"/"+name] = &fstest.MapFile{Data: []byte(body), ModTime: FixedTime}
		}
	}
	return fsys
}

// SampleFS is an in-memory content root holding the go-basics course and a
// second, smaller course.
func SampleFS() fstest.MapFS {
	fsys := CourseFS(map[string]map[string]string{
		"go-basics": SampleCourse(),
		"sql-intro": {
			"index.mdx": MDX("SQL Intro", []string{"sql", "beginner"}, "Tables and rows.\n"),
			"01.mdx":    MDX("SELECT", nil, "Reading rows.\n"),
		},
	})
	fsys["sql-intro/index.mdx"].ModTime = FixedTime.Add(24 * time.Hour)
	return fsys
}

// WriteCourse writes files into root/id and returns the course directory.
func WriteCourse(t *testing.T, root, id string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	}
	return dir
}

// CreateContentRoot writes the sample course to a temp dir and returns the
// content root.
func CreateContentRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "courses")
	WriteCourse(t, root, "go-basics", SampleCourse())
	return root
}

// CreateTestConfig returns a development configuration pointing at root
// with an in-memory sqlite account store.
func CreateTestConfig(root string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        0,
			Environment: "development",
		},
		Content: config.ContentConfig{
			Root:     root,
			AssetDir: "img",
		},
		Build: config.BuildConfig{
			OutputDir: "out",
			BaseURL:   "http://localhost:8080",
			Sitemap:   true,
			Robots:    true,
			Clean:     true,
			Workers:   2,
		},
		Auth: config.AuthConfig{
			Provider:  config.ProviderLocal,
			ActionURL: "http://localhost:8080/auth",
			Timeout:   5 * time.Second,
			Local: config.LocalAuthConfig{
				Driver:      "sqlite",
				DSN:         "file::memory:",
				TokenSecret: "test-token-secret-0123456789",
				TokenTTL:    time.Hour,
				CodeTTL:     time.Hour,
			},
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				Burst:             100,
			},
		},
		Session: config.SessionConfig{
			CookieName:      "syllabus_session",
			Secret:          "test-session-secret-0123456789",
			MaxAge:          3600,
			IdleTimeout:     30 * time.Minute,
			RecheckInterval: 5 * time.Minute,
		},
		Development: config.DevelopmentConfig{HotReload: true},
		Log:         config.LogConfig{Level: "error", Format: "text"},
	}
}

// PathTraversal lists course ids and asset names that must never resolve.
var PathTraversal = []string{
	"..",
	"../../../etc/passwd",
	"..\\..\\windows",
	"....//....//etc",
	"%2e%2e",
	"go-basics/../..",
}
