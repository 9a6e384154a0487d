package content

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
	"github.com/conneroisu/syllabus/internal/validation"
)

// DefaultAssetDir is the image directory inside each course.
const DefaultAssetDir = "img"

// Resolver reads courses from a filesystem rooted at the content root.
type Resolver struct {
	fsys     fs.FS
	assetDir string
	logger   logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAssetDir overrides the per-course image directory name.
func WithAssetDir(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.assetDir = dir
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger.WithComponent("content")
		}
	}
}

// NewResolver creates a resolver over fsys.
func NewResolver(fsys fs.FS, opts ...Option) *Resolver {
	r := &Resolver{
		fsys:     fsys,
		assetDir: DefaultAssetDir,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDirResolver creates a resolver over a directory on disk.
func NewDirResolver(root string, opts ...Option) *Resolver {
	return NewResolver(os.DirFS(root), opts...)
}

// AssetDir returns the per-course image directory name.
func (r *Resolver) AssetDir() string { return r.assetDir }

// FS exposes the underlying filesystem, used to serve and copy assets.
func (r *Resolver) FS() fs.FS { return r.fsys }

// CourseIDs lists the course directories in lexical order. Dot directories
// and plain files at the root are ignored.
func (r *Resolver) CourseIDs(ctx context.Context) ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "cannot read content root")
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if err := validation.ValidateCourseID(name); err != nil {
			r.logger.Warn(ctx, err, "Skipping directory with an invalid course id", "dir", name)
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListCourses returns the head of every course, reading only each landing
// file's front matter.
func (r *Resolver) ListCourses(ctx context.Context) ([]Course, error) {
	ids, err := r.CourseIDs(ctx)
	if err != nil {
		return nil, err
	}

	courses := make([]Course, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		course, err := r.Course(ctx, id)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Course returns the head of one course.
func (r *Resolver) Course(ctx context.Context, courseID string) (Course, error) {
	doc, err := r.readIndex(courseID, false)
	if err != nil {
		return Course{}, err
	}
	return r.courseFrom(courseID, doc.Meta), nil
}

// Lessons returns the lessons of a course sorted by topic then subtopic.
// Only files whose stem is all digits take part; the index file, the asset
// directory and anything else are ignored by name and type. A numeric file
// that is not a valid 2 or 4 digit token is an error.
func (r *Resolver) Lessons(ctx context.Context, courseID string) ([]LessonRef, error) {
	if err := checkCourseID(courseID); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(r.fsys, courseID)
	if err != nil {
		return nil, courseNotFound(courseID, err)
	}

	lessons := make([]LessonRef, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isLessonCandidate(entry) {
			continue
		}

		name := entry.Name()
		tok, err := ParseFileName(name)
		if err != nil {
			return nil, errors.WrapContent(err, errors.ErrCodeInvalidFileName,
				"invalid lesson file", path.Join(courseID, name))
		}

		fm, err := r.readFrontMatter(path.Join(courseID, name))
		if err != nil {
			return nil, err
		}

		title := fm.Title
		if title == "" {
			title = defaultTitle(tok)
		}
		lessons = append(lessons, LessonRef{
			File:  name,
			Token: tok,
			Slug:  tok.Slug(),
			Title: title,
			Link:  LessonLink(courseID, tok.Slug()),
		})
	}

	sort.Slice(lessons, func(i, j int) bool {
		return lessons[i].Token.Less(lessons[j].Token)
	})
	return lessons, nil
}

// Outline groups sorted lessons into topics. Every subtopic must follow the
// topic file with the same topic number.
func Outline(lessons []LessonRef) ([]Topic, error) {
	topics := make([]Topic, 0, len(lessons))
	current := 0

	for _, lesson := range lessons {
		if lesson.Token.IsTopic() {
			topics = append(topics, Topic{Topic: lesson.Hyperlink(), Subtopics: []Hyperlink{}})
			current = lesson.Token.Topic
			continue
		}
		if len(topics) == 0 || current != lesson.Token.Topic {
			return nil, errors.NewContentError(errors.ErrCodeOrphanSubtopic,
				fmt.Sprintf("subtopic %s has no topic file %02d%s", lesson.File, lesson.Token.Topic, LessonExt), nil).
				WithFile(lesson.File)
		}
		last := &topics[len(topics)-1]
		last.Subtopics = append(last.Subtopics, lesson.Hyperlink())
	}
	return topics, nil
}

// Siblings returns the lessons before and after file in lessons. A missing
// neighbour is nil; found is false when file is not in the list.
func Siblings(lessons []LessonRef, file string) (prev, next *Hyperlink, found bool) {
	for i, lesson := range lessons {
		if lesson.File != file {
			continue
		}
		if i > 0 {
			link := lessons[i-1].Hyperlink()
			prev = &link
		}
		if i < len(lessons)-1 {
			link := lessons[i+1].Hyperlink()
			next = &link
		}
		return prev, next, true
	}
	return nil, nil, false
}

// ResolveLanding builds the landing page of a course.
func (r *Resolver) ResolveLanding(ctx context.Context, courseID string) (*CoursePage, error) {
	index, err := r.readIndex(courseID, true)
	if err != nil {
		return nil, err
	}

	lessons, err := r.Lessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	outline, err := Outline(lessons)
	if err != nil {
		return nil, errors.WrapContent(err, errors.ErrCodeOrphanSubtopic, "cannot build outline", courseID)
	}

	r.logger.Debug(ctx, "Resolved course", "course", courseID, "lessons", len(lessons))

	return &CoursePage{
		Course:  r.courseFrom(courseID, index.Meta),
		Index:   *index,
		Outline: outline,
	}, nil
}

// ResolveLesson builds a lesson page from a course id and lesson slug.
func (r *Resolver) ResolveLesson(ctx context.Context, courseID, slug string) (*LessonPage, error) {
	if slug == "" {
		return nil, invalidSlug(slug)
	}
	fileName, err := URLToFileName(slug)
	if err != nil {
		return nil, err
	}

	index, err := r.readIndex(courseID, false)
	if err != nil {
		return nil, err
	}
	course := r.courseFrom(courseID, index.Meta)

	lessons, err := r.Lessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	prev, next, found := Siblings(lessons, fileName)
	if !found {
		return nil, errors.NewContentError(errors.ErrCodeLessonNotFound,
			fmt.Sprintf("lesson not found: %s/%s", courseID, slug), fs.ErrNotExist).
			WithFile(path.Join(courseID, fileName))
	}

	doc, err := r.readDocument(path.Join(courseID, fileName), true)
	if err != nil {
		return nil, err
	}
	if len(doc.Tags) == 0 {
		doc.Tags = course.Tags
	}
	if len(doc.Authors) == 0 {
		doc.Authors = course.Authors
	}

	var ref LessonRef
	for _, l := range lessons {
		if l.File == fileName {
			ref = l
			break
		}
	}
	if doc.Title == "" {
		doc.Title = ref.Title
	}

	r.logger.Debug(ctx, "Resolved lesson", "course", courseID, "slug", slug)

	return &LessonPage{
		Course:   course,
		Lesson:   ref,
		Document: *doc,
		Prev:     prev,
		Next:     next,
	}, nil
}

// Paths lists every routable page: the course listing, each course landing
// page and each lesson page.
func (r *Resolver) Paths(ctx context.Context) ([]string, error) {
	ids, err := r.CourseIDs(ctx)
	if err != nil {
		return nil, err
	}

	paths := []string{"/course"}
	for _, id := range ids {
		if _, err := r.readIndex(id, false); err != nil {
			return nil, err
		}
		paths = append(paths, CourseLink(id))

		lessons, err := r.Lessons(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, lesson := range lessons {
			paths = append(paths, lesson.Link)
		}
	}
	return paths, nil
}

func (r *Resolver) courseFrom(courseID string, meta Meta) Course {
	title := meta.Title
	if title == "" {
		title = courseID
		meta.Title = title
	}
	return Course{
		ID:   courseID,
		Link: Hyperlink{Title: title, Link: CourseLink(courseID)},
		Meta: meta,
	}
}

func (r *Resolver) readIndex(courseID string, withBody bool) (*Document, error) {
	if err := checkCourseID(courseID); err != nil {
		return nil, err
	}
	info, err := fs.Stat(r.fsys, courseID)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fs.ErrNotExist
		}
		return nil, courseNotFound(courseID, err)
	}

	doc, err := r.readDocument(path.Join(courseID, IndexFile), withBody)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewContentError(errors.ErrCodeMissingIndex,
				"course has no "+IndexFile, err).WithFile(courseID)
		}
		return nil, err
	}
	return doc, nil
}

func (r *Resolver) readDocument(name string, withBody bool) (*Document, error) {
	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		return nil, err
	}

	fm, body, err := ParseFrontMatter(src)
	if err != nil {
		return nil, errors.WrapContent(err, errors.ErrCodeFrontMatter, "cannot parse front matter", name)
	}

	doc := &Document{Meta: metaFrom(fm, info)}
	if withBody {
		doc.Body = body
		doc.ReadingTime = ReadingTimeOf(body)
	}
	return doc, nil
}

func (r *Resolver) readFrontMatter(name string) (FrontMatter, error) {
	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return FrontMatter{}, errors.WrapContent(err, errors.ErrCodeLessonNotFound, "cannot read lesson", name)
	}
	fm, _, err := ParseFrontMatter(src)
	if err != nil {
		return FrontMatter{}, errors.WrapContent(err, errors.ErrCodeFrontMatter, "cannot parse front matter", name)
	}
	return fm, nil
}

func metaFrom(fm FrontMatter, info fs.FileInfo) Meta {
	modified := info.ModTime().UTC()
	created := modified
	if fm.Created != nil {
		created = fm.Created.UTC()
	}
	tags := []string(fm.Tags)
	if tags == nil {
		tags = []string{}
	}
	authors := fm.Authors
	if authors == nil {
		authors = []Author{}
	}
	return Meta{
		Title:       fm.Title,
		Description: fm.Description,
		Tags:        tags,
		Authors:     authors,
		Created:     created,
		Modified:    modified,
	}
}

func isLessonCandidate(entry fs.DirEntry) bool {
	if !entry.Type().IsRegular() {
		return false
	}
	name := entry.Name()
	if name == IndexFile || path.Ext(name) != LessonExt {
		return false
	}
	return isDigits(strings.TrimSuffix(name, LessonExt))
}

func defaultTitle(tok Token) string {
	if tok.IsTopic() {
		return fmt.Sprintf("Lesson %d", tok.Topic)
	}
	return fmt.Sprintf("Lesson %d.%d", tok.Topic, tok.Subtopic)
}

func checkCourseID(courseID string) error {
	if err := validation.ValidateCourseID(courseID); err != nil {
		if strings.Contains(courseID, "..") {
			return errors.ErrPathTraversalAttempt(courseID)
		}
		return errors.NewContentError(errors.ErrCodeCourseNotFound, err.Error(), nil)
	}
	return nil
}

func courseNotFound(courseID string, cause error) error {
	return errors.NewContentError(errors.ErrCodeCourseNotFound, "course not found: "+courseID, cause).
		WithFile(courseID)
}
