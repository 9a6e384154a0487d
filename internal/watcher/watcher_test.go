package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	tests := []struct {
		path    string
		content bool
		visible bool
	}{
		{"courses/go-basics/01.mdx", true, true},
		{"courses/go-basics/img/hello.PNG", true, true},
		{"courses/go-basics/img/diagram.svg", true, true},
		{"courses/go-basics/README.md", false, true},
		{"courses/go-basics/.01.mdx.swp", false, false},
		{"courses/go-basics/01.mdx~", false, false},
		{"courses/go-basics/.#01.mdx", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.content, ContentFilter(tt.path))
			assert.Equal(t, tt.visible, NoHiddenFilter(tt.path))
		})
	}
}

func TestDebouncerKeepsLatestEventPerPath(t *testing.T) {
	d := newDebouncer(time.Hour)
	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "a.mdx"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.mdx"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.mdx"})
	d.stop()
	d.flush()

	events := <-d.output
	require.Len(t, events, 2)
	assert.Equal(t, "a.mdx", events[0].Path)
	assert.Equal(t, EventTypeModified, events[0].Type)
	assert.Equal(t, "b.mdx", events[1].Path)

	d.flush()
	assert.Empty(t, d.output, "nothing pending after a flush")
}

func TestAddRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "go-basics", "img"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755))

	w, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.AddRecursive(root))
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "go-basics"),
		filepath.Join(root, "go-basics", "img"),
	}, w.WatchList())

	assert.Error(t, w.AddRecursive(filepath.Join(root, "missing")))
	file := filepath.Join(root, "go-basics", "01.mdx")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, w.AddRecursive(file))
}

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) reload(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) seen(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.paths {
		if p == path {
			return true
		}
	}
	return false
}

func TestWatcherReportsContentChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "go-basics"), 0755))

	w, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	w.AddFilter(ContentFilter)
	w.AddFilter(NoHiddenFilter)

	var got collector
	w.AddHandler(ReloadHandler(root, got.reload))
	require.NoError(t, w.AddRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "go-basics", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go-basics", "01.mdx"), []byte("# Hi"), 0644))
	assert.Eventually(t, func() bool { return got.seen("go-basics/01.mdx") }, 2*time.Second, 10*time.Millisecond)

	// A new course directory is picked up without restarting.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sql-intro"), 0755))
	assert.Eventually(t, func() bool {
		for _, p := range w.WatchList() {
			if p == filepath.Join(root, "sql-intro") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sql-intro", "index.mdx"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return got.seen("sql-intro/index.mdx") }, 2*time.Second, 10*time.Millisecond)

	assert.False(t, got.seen("go-basics/notes.txt"))

	cancel()
	require.NoError(t, <-done)
	assert.NoError(t, w.Stop(), "stopping twice is harmless")
}
