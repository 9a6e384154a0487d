// Package build writes the whole site as static files: one index.html per
// page, the course images, a sitemap, robots.txt and a 404 page.
package build

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
	"github.com/conneroisu/syllabus/internal/renderer"
	"github.com/conneroisu/syllabus/internal/validation"
	"github.com/conneroisu/syllabus/internal/views"
)

// StaticSiteGenerator renders every routable page of a content root to
// files. Pages render ungated: static hosting has no session to check.
type StaticSiteGenerator struct {
	config    *config.Config
	resolver  *content.Resolver
	renderer  *renderer.Renderer
	outputDir string
	logger    logging.Logger
}

// StaticPage is a generated page.
type StaticPage struct {
	Path     string    `json:"path"`
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Result summarizes a build.
type Result struct {
	Pages    []StaticPage  `json:"pages"`
	Assets   []string      `json:"assets"`
	Extra    []string      `json:"extra"`
	Duration time.Duration `json:"duration"`
}

// Files lists every written file.
func (r *Result) Files() []string {
	files := make([]string, 0, len(r.Pages)+len(r.Assets)+len(r.Extra))
	for _, p := range r.Pages {
		files = append(files, p.File)
	}
	files = append(files, r.Assets...)
	return append(files, r.Extra...)
}

// Option configures a StaticSiteGenerator.
type Option func(*StaticSiteGenerator)

func WithLogger(logger logging.Logger) Option {
	return func(s *StaticSiteGenerator) {
		if logger != nil {
			s.logger = logger.WithComponent("build")
		}
	}
}

// WithOutputDir overrides config.Build.OutputDir.
func WithOutputDir(dir string) Option {
	return func(s *StaticSiteGenerator) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// NewStaticSiteGenerator creates a generator over resolver.
func NewStaticSiteGenerator(cfg *config.Config, resolver *content.Resolver, opts ...Option) *StaticSiteGenerator {
	s := &StaticSiteGenerator{
		config:    cfg,
		resolver:  resolver,
		outputDir: cfg.Build.OutputDir,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = renderer.New(
		renderer.WithAssetDir(resolver.AssetDir()),
		renderer.WithLogger(s.logger),
	)
	return s
}

// Generate builds the site. Any content error aborts the build; files
// written before the failure are left in place.
func (s *StaticSiteGenerator) Generate(ctx context.Context) (*Result, error) {
	perf := logging.StartOperation(s.logger, "static build")
	start := time.Now()

	result, err := s.generate(ctx)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	result.Duration = time.Since(start)
	perf.End(ctx, "pages", len(result.Pages), "assets", len(result.Assets), "output", s.outputDir)
	return result, nil
}

func (s *StaticSiteGenerator) generate(ctx context.Context) (*Result, error) {
	if err := s.prepareOutputDir(); err != nil {
		return nil, err
	}

	paths, err := s.resolver.Paths(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	pages, err := s.generatePages(ctx, paths)
	if err != nil {
		return nil, err
	}
	result := &Result{Pages: pages}

	result.Assets, err = s.copyAssets(ctx)
	if err != nil {
		return nil, err
	}

	extra := []struct {
		enabled bool
		write   func(context.Context, []StaticPage) (string, error)
	}{
		{true, s.generateIndexPage},
		{true, s.generateNotFoundPage},
		{s.config.Build.Sitemap, s.generateSitemap},
		{s.config.Build.Robots, s.generateRobotsTxt},
	}
	for _, e := range extra {
		if !e.enabled {
			continue
		}
		file, err := e.write(ctx, pages)
		if err != nil {
			return nil, err
		}
		result.Extra = append(result.Extra, file)
	}
	return result, nil
}

// prepareOutputDir creates the output directory, emptying it first when
// the build is configured to clean.
func (s *StaticSiteGenerator) prepareOutputDir() error {
	out := filepath.Clean(s.outputDir)
	if out == "." || out == string(filepath.Separator) || out == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, fmt.Sprintf("refusing to build into %q", s.outputDir))
	}
	if root := s.config.Content.Root; root != "" && filepath.Clean(root) == out {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "output directory is the content root")
	}

	if s.config.Build.Clean {
		if err := os.RemoveAll(out); err != nil {
			return errors.WrapIO(err, errors.ErrCodeBuildOutput, "cleaning output directory "+out)
		}
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeBuildOutput, "creating output directory "+out)
	}
	return nil
}

func (s *StaticSiteGenerator) workers() int {
	if n := s.config.Build.Workers; n > 0 {
		return n
	}
	return 4
}

// generatePages renders paths on a bounded worker group. The first failure
// cancels the rest.
func (s *StaticSiteGenerator) generatePages(ctx context.Context, paths []string) ([]StaticPage, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	var mu sync.Mutex
	pages := make([]StaticPage, 0, len(paths))

	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := s.generatePage(ctx, p)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", p, err)
			}
			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages, nil
}

func (s *StaticSiteGenerator) generatePage(ctx context.Context, urlPath string) (StaticPage, error) {
	data, modified, err := s.RenderPath(ctx, urlPath)
	if err != nil {
		return StaticPage{}, err
	}
	file := filepath.Join(s.outputDir, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")), "index.html")
	if err := s.writeFile(file, data); err != nil {
		return StaticPage{}, err
	}
	s.logger.Debug(ctx, "Wrote page", "path", urlPath, "file", file)
	return StaticPage{Path: urlPath, File: file, Size: int64(len(data)), Modified: modified}, nil
}

// RenderPath renders one page of the site as a static document and returns
// it with the modification time of its source.
func (s *StaticSiteGenerator) RenderPath(ctx context.Context, urlPath string) ([]byte, time.Time, error) {
	segments := strings.Split(strings.Trim(urlPath, "/"), "/")

	switch {
	case urlPath == "/course":
		courses, err := s.resolver.ListCourses(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		courses = content.Query{Order: content.SortNewest}.Apply(courses)
		var modified time.Time
		for _, c := range courses {
			if c.Modified.After(modified) {
				modified = c.Modified
			}
		}
		data := views.CourseListData{Courses: courses, Order: content.SortNewest, Static: true}
		html, err := s.layout(ctx, views.PageMeta{Title: "courses", Description: "Explore courses"}, views.CourseList(data))
		return html, modified, err

	case len(segments) == 1:
		page, err := s.resolver.ResolveLanding(ctx, segments[0])
		if err != nil {
			return nil, time.Time{}, err
		}
		body, err := s.renderer.Render(ctx, page.Course.ID, page.Index.Body)
		if err != nil {
			return nil, time.Time{}, err
		}
		meta := views.PageMeta{Title: page.Course.Title, Description: page.Index.Description}
		html, err := s.layout(ctx, meta, views.CoursePage(page, body))
		return html, page.Course.Modified, err

	case len(segments) == 2:
		page, err := s.resolver.ResolveLesson(ctx, segments[0], segments[1])
		if err != nil {
			return nil, time.Time{}, err
		}
		body, err := s.renderer.Render(ctx, segments[0], page.Body)
		if err != nil {
			return nil, time.Time{}, err
		}
		meta := views.PageMeta{Title: page.Title, Description: page.Description}
		html, err := s.layout(ctx, meta, views.LessonPage(page, body))
		return html, page.Modified, err

	default:
		return nil, time.Time{}, errors.NewContentError(errors.ErrCodeLessonNotFound, "no such page: "+urlPath, nil)
	}
}

func (s *StaticSiteGenerator) layout(ctx context.Context, meta views.PageMeta, body templ.Component) ([]byte, error) {
	meta.Static = true
	var buf bytes.Buffer
	if err := views.Layout(meta, body).Render(ctx, &buf); err != nil {
		return nil, err
	}
	if s.config.Build.Minify {
		return []byte(minifyHTML(buf.String())), nil
	}
	return buf.Bytes(), nil
}

// copyAssets copies the image directory of every course.
func (s *StaticSiteGenerator) copyAssets(ctx context.Context) ([]string, error) {
	ids, err := s.resolver.CourseIDs(ctx)
	if err != nil {
		return nil, err
	}

	fsys := s.resolver.FS()
	var copied []string
	for _, id := range ids {
		dir := path.Join(id, s.resolver.AssetDir())
		entries, err := fs.ReadDir(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeBuildOutput, "reading asset directory "+dir)
		}
		for _, entry := range entries {
			if entry.IsDir() || validation.ValidateAssetName(entry.Name()) != nil {
				continue
			}
			src := path.Join(dir, entry.Name())
			data, err := fs.ReadFile(fsys, src)
			if err != nil {
				return nil, errors.WrapIO(err, errors.ErrCodeBuildOutput, "reading asset "+src)
			}
			dst := filepath.Join(s.outputDir, filepath.FromSlash(src))
			if err := s.writeFile(dst, data); err != nil {
				return nil, err
			}
			copied = append(copied, dst)
		}
	}
	return copied, nil
}

// generateIndexPage sends visitors of the site root to the course listing,
// as the server does.
func (s *StaticSiteGenerator) generateIndexPage(ctx context.Context, _ []StaticPage) (string, error) {
	file := filepath.Join(s.outputDir, "index.html")
	const redirect = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
		`<meta http-equiv="refresh" content="0; url=/course"><link rel="canonical" href="/course">` +
		`<title>Syllabus</title></head><body><a href="/course">Courses</a></body></html>` + "\n"
	return file, s.writeFile(file, []byte(redirect))
}

func (s *StaticSiteGenerator) generateNotFoundPage(ctx context.Context, _ []StaticPage) (string, error) {
	html, err := s.layout(ctx, views.PageMeta{Title: "not found"}, views.ErrorPage(http.StatusNotFound, "This page does not exist."))
	if err != nil {
		return "", err
	}
	file := filepath.Join(s.outputDir, "404.html")
	return file, s.writeFile(file, html)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (s *StaticSiteGenerator) generateSitemap(_ context.Context, pages []StaticPage) (string, error) {
	base := strings.TrimSuffix(s.baseURL(), "/")
	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range pages {
		u := sitemapURL{Loc: base + p.Path, ChangeFreq: "weekly", Priority: "0.8"}
		if p.Path == "/course" {
			u.Priority = "1.0"
		}
		if !p.Modified.IsZero() {
			u.LastMod = p.Modified.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal sitemap: %w", err)
	}
	file := filepath.Join(s.outputDir, "sitemap.xml")
	return file, s.writeFile(file, append([]byte(xml.Header), append(data, '\n')...))
}

func (s *StaticSiteGenerator) generateRobotsTxt(_ context.Context, _ []StaticPage) (string, error) {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	if s.config.Build.Sitemap {
		fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", strings.TrimSuffix(s.baseURL(), "/"))
	}
	file := filepath.Join(s.outputDir, "robots.txt")
	return file, s.writeFile(file, []byte(b.String()))
}

func (s *StaticSiteGenerator) baseURL() string {
	if s.config.Build.BaseURL != "" {
		return s.config.Build.BaseURL
	}
	return "http://" + s.config.Addr()
}

func (s *StaticSiteGenerator) writeFile(file string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeBuildOutput, "creating directory "+filepath.Dir(file))
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeBuildOutput, "writing file "+file)
	}
	return nil
}

// minifyHTML trims indentation and drops blank lines. Lines inside <pre>
// blocks are kept as they are.
func minifyHTML(html string) string {
	var out strings.Builder
	inPre := false
	for _, line := range strings.Split(html, "\n") {
		switch {
		case inPre:
			out.WriteString(line)
			out.WriteString("\n")
		case strings.TrimSpace(line) != "":
			out.WriteString(strings.TrimSpace(line))
			out.WriteString("\n")
		}
		if strings.Contains(line, "<pre") {
			inPre = true
		}
		if strings.Contains(line, "</pre>") {
			inPre = false
		}
	}
	return out.String()
}
