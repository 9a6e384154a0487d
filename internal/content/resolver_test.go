package content

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/testutils"
)

func TestCourseIDs(t *testing.T) {
	fsys := testutils.SampleFS()
	fsys[".git/HEAD"] = &fstest.MapFile{Data: []byte("ref")}
	fsys["_drafts/index.mdx"] = &fstest.MapFile{Data: []byte("x")}
	fsys["bad id/index.mdx"] = &fstest.MapFile{Data: []byte("x")}
	fsys["notes.txt"] = &fstest.MapFile{Data: []byte("x")}

	ids, err := NewResolver(fsys).CourseIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"go-basics", "sql-intro"}, ids)
}

func TestListCourses(t *testing.T) {
	courses, err := NewResolver(testutils.SampleFS()).ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)

	goBasics := courses[0]
	assert.Equal(t, "go-basics", goBasics.ID)
	assert.Equal(t, "Go Basics", goBasics.Title)
	assert.Equal(t, Hyperlink{Title: "Go Basics", Link: "/go-basics"}, goBasics.Link)
	assert.Equal(t, []string{"go", "beginner"}, goBasics.Tags)
	assert.Equal(t, []Author{{Name: "Ada", Link: "https://example.com/ada"}, {Name: "Grace"}}, goBasics.Authors)
	assert.Equal(t, testutils.FixedTime, goBasics.Modified)
	assert.Equal(t, testutils.FixedTime, goBasics.Created, "created falls back to the modification time")

	sqlIntro := courses[1]
	assert.Equal(t, "SQL Intro", sqlIntro.Title)
	assert.Equal(t, testutils.FixedTime.Add(24*time.Hour), sqlIntro.Modified)
	assert.Empty(t, sqlIntro.Authors)
	assert.NotNil(t, sqlIntro.Authors)
}

func TestCourseTitleFallsBackToID(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"untitled": {"index.mdx": "no front matter\n"},
	})
	course, err := NewResolver(fsys).Course(context.Background(), "untitled")
	require.NoError(t, err)
	assert.Equal(t, "untitled", course.Title)
	assert.Equal(t, "untitled", course.Link.Title)
}

func TestLessonsAllowList(t *testing.T) {
	lessons, err := NewResolver(testutils.SampleFS()).Lessons(context.Background(), "go-basics")
	require.NoError(t, err)

	files := make([]string, len(lessons))
	for i, l := range lessons {
		files[i] = l.File
	}
	assert.Equal(t, []string{"01.mdx", "0101.mdx", "0102.mdx", "02.mdx", "03.mdx"}, files)
	assert.Equal(t, "lesson-01-02", lessons[2].Slug)
	assert.Equal(t, "/go-basics/lesson-01-02", lessons[2].Link)
	assert.Equal(t, "On macOS", lessons[2].Title)
}

func TestLessonsDefaultTitle(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"c": {
			"index.mdx": testutils.MDX("C", nil, ""),
			"01.mdx":    "body only\n",
			"0103.mdx":  "body only\n",
		},
	})
	lessons, err := NewResolver(fsys).Lessons(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "Lesson 1", lessons[0].Title)
	assert.Equal(t, "Lesson 1.3", lessons[1].Title)
}

func TestLessonsRejectsBadNumericNames(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"c": {
			"index.mdx": testutils.MDX("C", nil, ""),
			"123.mdx":   "x",
		},
	})
	_, err := NewResolver(fsys).Lessons(context.Background(), "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidFileName)
}

func TestOutline(t *testing.T) {
	page, err := NewResolver(testutils.SampleFS()).ResolveLanding(context.Background(), "go-basics")
	require.NoError(t, err)

	want := []Topic{
		{
			Topic: Hyperlink{Title: "Installing Go", Link: "/go-basics/lesson-01"},
			Subtopics: []Hyperlink{
				{Title: "On Linux", Link: "/go-basics/lesson-01-01"},
				{Title: "On macOS", Link: "/go-basics/lesson-01-02"},
			},
		},
		{Topic: Hyperlink{Title: "Hello World", Link: "/go-basics/lesson-02"}, Subtopics: []Hyperlink{}},
		{Topic: Hyperlink{Title: "Packages", Link: "/go-basics/lesson-03"}, Subtopics: []Hyperlink{}},
	}
	assert.Equal(t, want, page.Outline)
	assert.Equal(t, "Go Basics", page.Course.Title)
	assert.Contains(t, string(page.Index.Body), "Welcome to **Go Basics**.")
	assert.Equal(t, "less than 1 minute", page.Index.ReadingTime)
}

func TestOutlineOrphanSubtopic(t *testing.T) {
	lessons := []LessonRef{
		{File: "01.mdx", Token: Token{Topic: 1}},
		{File: "0201.mdx", Token: Token{Topic: 2, Subtopic: 1}},
	}
	_, err := Outline(lessons)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrOrphanSubtopic)

	_, err = Outline([]LessonRef{{File: "0101.mdx", Token: Token{Topic: 1, Subtopic: 1}}})
	assert.ErrorIs(t, err, errors.ErrOrphanSubtopic)

	topics, err := Outline(nil)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestResolveLandingOrphan(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"c": {
			"index.mdx": testutils.MDX("C", nil, ""),
			"01.mdx":    testutils.MDX("One", nil, ""),
			"0201.mdx":  testutils.MDX("Orphan", nil, ""),
		},
	})
	_, err := NewResolver(fsys).ResolveLanding(context.Background(), "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrOrphanSubtopic)
}

func TestSiblings(t *testing.T) {
	lessons := []LessonRef{
		{File: "01.mdx", Title: "A", Link: "/c/lesson-01"},
		{File: "02.mdx", Title: "B", Link: "/c/lesson-02"},
		{File: "03.mdx", Title: "C", Link: "/c/lesson-03"},
	}

	tests := []struct {
		file      string
		wantPrev  *Hyperlink
		wantNext  *Hyperlink
		wantFound bool
	}{
		{"01.mdx", nil, &Hyperlink{Title: "B", Link: "/c/lesson-02"}, true},
		{"02.mdx", &Hyperlink{Title: "A", Link: "/c/lesson-01"}, &Hyperlink{Title: "C", Link: "/c/lesson-03"}, true},
		{"03.mdx", &Hyperlink{Title: "B", Link: "/c/lesson-02"}, nil, true},
		{"04.mdx", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			prev, next, found := Siblings(lessons, tt.file)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantPrev, prev)
			assert.Equal(t, tt.wantNext, next)
		})
	}

	prev, next, found := Siblings(lessons[:1], "01.mdx")
	assert.True(t, found)
	assert.Nil(t, prev)
	assert.Nil(t, next)
}

func TestResolveLesson(t *testing.T) {
	r := NewResolver(testutils.SampleFS())
	ctx := context.Background()

	page, err := r.ResolveLesson(ctx, "go-basics", "lesson-01-02")
	require.NoError(t, err)

	assert.Equal(t, "On macOS", page.Title)
	assert.Equal(t, "0102.mdx", page.Lesson.File)
	require.NotNil(t, page.Prev)
	require.NotNil(t, page.Next)
	assert.Equal(t, Hyperlink{Title: "On Linux", Link: "/go-basics/lesson-01-01"}, *page.Prev)
	assert.Equal(t, Hyperlink{Title: "Hello World", Link: "/go-basics/lesson-02"}, *page.Next)
	assert.Equal(t, []string{"macos"}, page.Tags, "own tags win")
	assert.Equal(t, page.Course.Authors, page.Authors, "authors are inherited")
	assert.Equal(t, "Use the pkg installer.\n", string(page.Body))

	first, err := r.ResolveLesson(ctx, "go-basics", "lesson-01")
	require.NoError(t, err)
	assert.Nil(t, first.Prev)
	assert.Equal(t, []string{"go", "beginner"}, first.Tags, "tags are inherited")

	last, err := r.ResolveLesson(ctx, "go-basics", "lesson-03")
	require.NoError(t, err)
	assert.Nil(t, last.Next)
}

func TestResolveLessonErrors(t *testing.T) {
	r := NewResolver(testutils.SampleFS())
	ctx := context.Background()

	tests := []struct {
		name   string
		course string
		slug   string
		want   error
	}{
		{"empty slug", "go-basics", "", errors.ErrInvalidSlug},
		{"malformed slug", "go-basics", "lesson-1", errors.ErrInvalidSlug},
		{"unknown lesson", "go-basics", "lesson-05", errors.ErrLessonNotFound},
		{"unknown subtopic", "go-basics", "lesson-02-01", errors.ErrLessonNotFound},
		{"unknown course", "rust-basics", "lesson-01", errors.ErrCourseNotFound},
		{"traversal", "..", "lesson-01", errors.ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ResolveLesson(ctx, tt.course, tt.slug)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveLandingErrors(t *testing.T) {
	fsys := testutils.SampleFS()
	fsys["no-index/01.mdx"] = &fstest.MapFile{Data: []byte("x")}
	fsys["file-course"] = &fstest.MapFile{Data: []byte("x")}
	r := NewResolver(fsys)
	ctx := context.Background()

	_, err := r.ResolveLanding(ctx, "no-index")
	assert.ErrorIs(t, err, errors.ErrMissingIndex)

	_, err = r.ResolveLanding(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrCourseNotFound)

	_, err = r.ResolveLanding(ctx, "file-course")
	assert.ErrorIs(t, err, errors.ErrCourseNotFound)

	for _, id := range testutils.PathTraversal {
		_, err := r.ResolveLanding(ctx, id)
		require.Error(t, err, id)
		assert.Contains(t, []errors.ErrorType{errors.ErrorTypeSecurity, errors.ErrorTypeContent}, errors.TypeOf(err), id)
	}
}

func TestPaths(t *testing.T) {
	paths, err := NewResolver(testutils.SampleFS()).Paths(context.Background())
	require.NoError(t, err)
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
}

func TestResolverOnDisk(t *testing.T) {
	root := testutils.CreateContentRoot(t)
	r := NewDirResolver(root)
	ctx := context.Background()

	page, err := r.ResolveLesson(ctx, "go-basics", "lesson-02")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", page.Title)
	assert.False(t, page.Modified.IsZero())
	assert.Equal(t, "img", r.AssetDir())

	ids, err := r.CourseIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go-basics"}, ids)
}

func TestResolverHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(testutils.SampleFS()).ListCourses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrontMatterCreatedWins(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"c": {"index.mdx": "---\ntitle: C\ncreated: 2020-05-01T00:00:00Z\n---\n"},
	})
	course, err := NewResolver(fsys).Course(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), course.Created)
	assert.Equal(t, testutils.FixedTime, course.Modified)
}
