package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/testutils"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"-l", "error"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func contentRoot(t *testing.T) string {
	t.Helper()
	root := testutils.CreateContentRoot(t)
	testutils.WriteCourse(t, root, "sql-intro", map[string]string{
		"index.mdx": testutils.MDX("SQL Intro", []string{"sql", "beginner"}, "Tables and rows.\n"),
		"01.mdx":    testutils.MDX("SELECT", nil, "Reading rows.\n"),
	})
	return root
}

func TestListCommand(t *testing.T) {
	root := contentRoot(t)

	t.Run("table", func(t *testing.T) {
		out, _, err := run(t, "list", "--content", root, "--sort", "A-Z")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.GreaterOrEqual(t, len(lines), 3)
		assert.Contains(t, lines[0], "TITLE")
		assert.Contains(t, lines[1], "go-basics")
		assert.Contains(t, lines[2], "sql-intro")
		assert.Contains(t, out, "Total: 2 courses")
		assert.Contains(t, out, "Tags:  beginner, go, sql")
	})

	t.Run("json with tags", func(t *testing.T) {
		out, _, err := run(t, "list", "--content", root, "--tags", "sql", "-o", "json")
		require.NoError(t, err)
		var courses []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &courses))
		require.Len(t, courses, 1)
		assert.Equal(t, "sql-intro", courses[0]["id"])
		assert.Equal(t, "SQL Intro", courses[0]["title"])
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := run(t, "list", "--content", root, "--sort", "z-a", "-o", "yaml")
		require.NoError(t, err)
		assert.Less(t, strings.Index(out, "id: sql-intro"), strings.Index(out, "id: go-basics"))
	})

	t.Run("no match", func(t *testing.T) {
		out, _, err := run(t, "list", "--content", root, "--tags", "rust")
		require.NoError(t, err)
		assert.Contains(t, out, "No courses found.")
	})

	t.Run("invalid flags", func(t *testing.T) {
		_, _, err := run(t, "list", "--content", root, "-o", "xml")
		assert.Error(t, err)
		_, _, err = run(t, "list", "--content", root, "--sort", "sideways")
		assert.Error(t, err)
	})
}

func TestCheckCommand(t *testing.T) {
	root := contentRoot(t)

	out, _, err := run(t, "check", "--content", root)
	require.NoError(t, err)
	assert.NotContains(t, out, "error")

	testutils.WriteCourse(t, root, "broken", map[string]string{
		"01.mdx":   testutils.MDX("One", nil, "x"),
		"0201.mdx": testutils.MDX("Orphan", nil, "x"),
	})
	out, _, err = run(t, "check", "--content", root, "-o", "json")
	require.Error(t, err)

	var rows []problemRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	var broken []problemRow
	for _, r := range rows {
		if r.Course == "broken" {
			broken = append(broken, r)
		}
	}
	require.NotEmpty(t, broken)
	for _, r := range broken {
		assert.Equal(t, "error", r.Severity)
	}

	out, _, err = run(t, "check", "--content", root, "-q")
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestBuildCommand(t *testing.T) {
	root := contentRoot(t)
	outDir := filepath.Join(t.TempDir(), "site")

	out, _, err := run(t, "build", "--content", root, "--output-dir", outDir, "--base-url", "https://courses.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Build completed successfully")
	assert.Contains(t, out, "pages rendered")

	for _, name := range []string{
		"index.html",
		"404.html",
		"sitemap.xml",
		"robots.txt",
		"course/index.html",
		"go-basics/index.html",
		"go-basics/lesson-01-02/index.html",
		"go-basics/img/hello.png",
		"sql-intro/lesson-01/index.html",
	} {
		assert.FileExists(t, filepath.Join(outDir, filepath.FromSlash(name)))
	}

	sitemap, err := os.ReadFile(filepath.Join(outDir, "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sitemap), "https://courses.example.com/sql-intro")

	t.Run("quiet", func(t *testing.T) {
		out, _, err := run(t, "build", "--content", root, "--output-dir", outDir, "-q")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("refuses content root", func(t *testing.T) {
		_, _, err := run(t, "build", "--content", root, "--output-dir", root)
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "text",
			args: []string{"version"},
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, "syllabus "))
				assert.Contains(t, out, "platform:")
			},
		},
		{
			name: "json",
			args: []string{"version", "-o", "json"},
			check: func(t *testing.T, out string) {
				var info map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(out), &info))
				assert.Contains(t, info, "version")
				assert.Contains(t, info, "go_version")
			},
		},
		{
			name: "yaml",
			args: []string{"version", "-o", "yaml"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "version: ")
			},
		},
		{
			name: "short",
			args: []string{"version", "--short"},
			check: func(t *testing.T, out string) {
				assert.Equal(t, 1, strings.Count(out, "\n"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			tt.check(t, out)
		})
	}

	_, _, err := run(t, "version", "-o", "xml")
	assert.Error(t, err)
}

func TestAuthCommand(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "syllabus.yml")
	cfg := "auth:\n  local:\n    dsn: " + filepath.Join(dir, "accounts.db") + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0644))

	out, stderr, err := run(t, "--config", cfgFile, "auth", "sign-up",
		"--email", "ada@example.com", "--username", "ada",
		"--password", "secret-pw", "--password-confirm", "secret-pw")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file:")
	assert.Contains(t, out, "successfully signed up!")
	assert.Contains(t, out, "status: not-verified")
	assert.Contains(t, out, "ada <ada@example.com>")

	out, _, err = run(t, "--config", cfgFile, "auth", "change-username",
		"--email", "ada@example.com", "--password", "secret-pw", "--username", "grace")
	require.NoError(t, err)
	assert.Contains(t, out, "username changed!")
	assert.Contains(t, out, "grace <ada@example.com>")

	_, _, err = run(t, "--config", cfgFile, "auth", "sign-in",
		"--email", "ada@example.com", "--password", "wrong")
	assert.Error(t, err)

	_, _, err = run(t, "--config", cfgFile, "auth", "sign-up", "--email", "x@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")

	_, _, err = run(t, "--config", cfgFile, "auth", "fly")
	assert.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yml"), "list")
	assert.Error(t, err)

	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "nope.yml"))
	_, _, err = run(t, "list")
	assert.Error(t, err)
}

func TestEnvOverridesContentRoot(t *testing.T) {
	t.Setenv("SYLLABUS_CONTENT_ROOT", contentRoot(t))
	out, _, err := run(t, "list", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "go-basics"`)
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    string
		wantErr bool
	}{
		{"8080", false},
		{"1", false},
		{"65535", false},
		{"0", true},
		{"65536", true},
		{"-1", true},
		{"http", true},
	}
	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddFlagValidation(t *testing.T) {
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	AddStandardFlags(cmd, "server", "output")

	assert.Error(t, cmd.Flags().Set("port", "70000"))
	require.NoError(t, cmd.Flags().Set("port", "3000"))
	port, err := cmd.Flags().GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 3000, port)

	assert.NoError(t, ValidateFormat("JSON", listFormats))
	assert.Error(t, ValidateFormat("csv", listFormats))
}

// syncBuffer is a bytes.Buffer safe for a command writing from watcher
// goroutines while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitCommand(t *testing.T) {
	root := contentRoot(t)

	out, _, err := run(t, "init", "rust-intro", "--content", root, "--author", "Ada", "--tags", "rust,beginner")
	require.NoError(t, err)
	assert.Contains(t, out, `Created course "Rust Intro"`)
	assert.FileExists(t, filepath.Join(root, "rust-intro", "index.mdx"))
	assert.FileExists(t, filepath.Join(root, "rust-intro", "01.mdx"))
	assert.DirExists(t, filepath.Join(root, "rust-intro", "img"))

	out, _, err = run(t, "list", "--content", root, "--tags", "rust", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Rust Intro"`)

	_, _, err = run(t, "check", "--content", root, "-q")
	assert.NoError(t, err, "a scaffold passes check")

	t.Run("existing course", func(t *testing.T) {
		_, _, err := run(t, "init", "rust-intro", "--content", root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("invalid id", func(t *testing.T) {
		_, _, err := run(t, "init", "../escape", "--content", root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid course id")
	})
}

func TestTitleFromID(t *testing.T) {
	assert.Equal(t, "Go Basics", titleFromID("go-basics"))
	assert.Equal(t, "Sql Intro 2", titleFromID("sql_intro-2"))
}

func TestConfigCommand(t *testing.T) {
	root := contentRoot(t)

	out, _, err := run(t, "config", "show", "--content", root)
	require.NoError(t, err)
	assert.Contains(t, out, "root: "+root)
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "syllabus-development-session-secret")

	out, _, err = run(t, "config", "show", "-o", "json")
	require.NoError(t, err)
	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Contains(t, shown, "Server")

	out, _, err = run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	t.Setenv("SYLLABUS_SERVER_PORT", "70000")
	_, _, err = run(t, "config", "validate")
	assert.Error(t, err)
}

func TestHealthCommand(t *testing.T) {
	var status atomic.Value
	status.Store("healthy")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":%q,"version":"1.2.3","provider":"local","checks":{"sessions":{"active":2}}}`, status.Load())
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	out, _, err := run(t, "health", "--host", u.Hostname(), "-p", u.Port())
	require.NoError(t, err)
	assert.Contains(t, out, "is healthy (version 1.2.3, provider local)")

	out, _, err = run(t, "health", "--host", u.Hostname(), "-p", u.Port(), "-v")
	require.NoError(t, err)
	assert.Contains(t, out, `"active": 2`)

	status.Store("degraded")
	_, _, err = run(t, "health", "--host", u.Hostname(), "-p", u.Port())
	assert.Error(t, err)

	srv.Close()
	_, _, err = run(t, "health", "--host", u.Hostname(), "-p", u.Port(), "-t", "500ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestWatchCommand(t *testing.T) {
	root := contentRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCommand()
	var stdout syncBuffer
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"-l", "error", "watch", "--content", root})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "Watching") },
		5*time.Second, 20*time.Millisecond)

	// A subtopic without its topic is an error, but the watch goes on.
	testutils.WriteCourse(t, root, "sql-intro", map[string]string{
		"0301.mdx": testutils.MDX("Orphan", nil, "x"),
	})
	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "file(s) changed") },
		5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return strings.Contains(stdout.String(), "0301.mdx") },
		5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestDoctorCommand(t *testing.T) {
	root := contentRoot(t)
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "syllabus.yml")
	cfg := strings.Join([]string{
		"server:",
		"  port: 0",
		"content:",
		"  root: " + root,
		"build:",
		"  output_dir: " + filepath.Join(dir, "out"),
		"auth:",
		"  local:",
		"    dsn: " + filepath.Join(dir, "accounts.db"),
	}, "\n")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0644))

	out, _, err := run(t, "--config", cfgFile, "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✅ content root: 2 course(s)")
	assert.Contains(t, out, "✅ account store: sqlite store opened and migrated")
	assert.Contains(t, out, "0 error(s)")

	testutils.WriteCourse(t, root, "broken", map[string]string{
		"0201.mdx": testutils.MDX("Orphan", nil, "x"),
	})
	out, _, err = run(t, "--config", cfgFile, "doctor", "-o", "json")
	require.Error(t, err)
	var report DoctorReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	var layout DiagnosticResult
	for _, r := range report.Results {
		if r.Name == "content layout" {
			layout = r
		}
	}
	assert.Equal(t, statusError, layout.Status)
	assert.NotEmpty(t, report.Environment["go"])
}
