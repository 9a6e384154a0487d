package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/testutils"
)

func newGenerator(t *testing.T, fsys fstest.MapFS) (*StaticSiteGenerator, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	cfg := testutils.CreateTestConfig("courses")
	cfg.Build.BaseURL = "https://courses.example.com/"
	resolver := content.NewResolver(fsys, content.WithAssetDir("img"))
	return NewStaticSiteGenerator(cfg, resolver, WithOutputDir(out)), out
}

func readOut(t *testing.T, out, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	gen, out := newGenerator(t, testutils.SampleFS())

	result, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, p := range result.Pages {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{
		"/course",
		"/go-basics",
		"/go-basics/lesson-01",
		"/go-basics/lesson-01-01",
		"/go-basics/lesson-01-02",
		"/go-basics/lesson-02",
		"/go-basics/lesson-03",
		"/sql-intro",
		"/sql-intro/lesson-01",
	}, paths)

	listing := readOut(t, out, "course/index.html")
	assert.Contains(t, listing, "Explore courses")
	assert.NotContains(t, listing, "sortMethod", "static listings have no sort form")
	assert.NotContains(t, listing, "/login", "static pages do not link to account pages")
	assert.NotContains(t, listing, "WebSocket")

	lesson := readOut(t, out, "go-basics/lesson-02/index.html")
	assert.Contains(t, lesson, "<title>Hello World | Syllabus</title>")
	assert.Contains(t, lesson, "/go-basics/img/hello.png", "relative images point at the course asset dir")

	assert.Equal(t, "png-bytes", readOut(t, out, "go-basics/img/hello.png"))
	assert.Len(t, result.Assets, 1)
	_, err = os.Stat(filepath.Join(out, "go-basics", "README.md"))
	assert.True(t, os.IsNotExist(err))

	assert.Contains(t, readOut(t, out, "index.html"), `url=/course`)
	assert.Contains(t, readOut(t, out, "404.html"), "404 Not Found")

	sitemap := readOut(t, out, "sitemap.xml")
	assert.True(t, strings.HasPrefix(sitemap, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, sitemap, "<loc>https://courses.example.com/go-basics/lesson-01</loc>")
	assert.Contains(t, sitemap, "<lastmod>2024-03-06</lastmod>", "the listing carries its newest course date")

	robots := readOut(t, out, "robots.txt")
	assert.Equal(t, "User-agent: *\nAllow: /\nSitemap: https://courses.example.com/sitemap.xml\n", robots)

	assert.Len(t, result.Files(), len(result.Pages)+len(result.Assets)+4)
}

func TestGenerateOptionalFiles(t *testing.T) {
	gen, out := newGenerator(t, testutils.SampleFS())
	gen.config.Build.Sitemap = false
	gen.config.Build.Robots = false
	gen.config.Build.Minify = true

	_, err := gen.Generate(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "sitemap.xml"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "robots.txt"))
	assert.True(t, os.IsNotExist(err))

	page := readOut(t, out, "go-basics/index.html")
	assert.NotContains(t, page, "\n\n")
	assert.NotContains(t, page, "\n ")
}

func TestGenerateCleansOutput(t *testing.T) {
	gen, out := newGenerator(t, testutils.SampleFS())
	require.NoError(t, os.MkdirAll(out, 0755))
	stale := filepath.Join(out, "old-course", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))

	_, err := gen.Generate(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateFailsOnContentErrors(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"missing index": testutils.CourseFS(map[string]map[string]string{
			"broken": {"01.mdx": testutils.MDX("One", nil, "x")},
		}),
		"bad front matter": testutils.CourseFS(map[string]map[string]string{
			"broken": {
				"index.mdx": testutils.MDX("Broken", nil, "x"),
				"01.mdx":    "---\ntitle: [unclosed\n---\nbody",
			},
		}),
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			gen, _ := newGenerator(t, fsys)
			_, err := gen.Generate(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRefusesDangerousOutputDirs(t *testing.T) {
	for _, dir := range []string{".", "/"} {
		t.Run(dir, func(t *testing.T) {
			gen, _ := newGenerator(t, testutils.SampleFS())
			gen.outputDir = dir
			_, err := gen.Generate(context.Background())
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
		})
	}
}

func TestRenderPathUnknown(t *testing.T) {
	gen, _ := newGenerator(t, testutils.SampleFS())
	_, _, err := gen.RenderPath(context.Background(), "/a/b/c")
	assert.Error(t, err)

	_, _, err = gen.RenderPath(context.Background(), "/missing")
	assert.True(t, errors.Is(err, errors.ErrCourseNotFound))
}

func TestMinifyHTML(t *testing.T) {
	in := "<div>\n    <p>a</p>\n\n  <pre><code>x\n    indented\n</code></pre>\n  <p>b</p>\n</div>\n"
	want := "<div>\n<p>a</p>\n<pre><code>x\n    indented\n</code></pre>\n<p>b</p>\n</div>\n"
	assert.Equal(t, want, minifyHTML(in))
}
