package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/testutils"
)

func TestCheckCleanTree(t *testing.T) {
	collector, err := NewResolver(testutils.SampleFS()).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Err())
}

func TestCheckReportsProblems(t *testing.T) {
	fsys := testutils.CourseFS(map[string]map[string]string{
		"broken": {
			"index.mdx":       "no title here\n",
			"01.mdx":          "untitled lesson\n",
			"0201.mdx":        testutils.MDX("Orphan", nil, ""),
			"123.mdx":         "x",
			"notes.mdx":       "x",
			"drafts/05.mdx":   "x",
			"img/picture.png": "x",
		},
		"no-index": {
			"01.mdx": testutils.MDX("One", nil, ""),
		},
		"bad-yaml": {
			"index.mdx": testutils.MDX("Bad", nil, ""),
			"01.mdx":    "---\ntitle: [oops\n---\n",
		},
	})

	collector, err := NewResolver(fsys).Check(context.Background())
	require.NoError(t, err)
	require.True(t, collector.HasErrors())

	type finding struct {
		course, file, code string
		severity           errors.Severity
	}
	var got []finding
	for _, p := range collector.Problems() {
		got = append(got, finding{p.Course, p.File, p.Code, p.Severity})
	}

	assert.Contains(t, got, finding{"bad-yaml", "bad-yaml/01.mdx", errors.ErrCodeFrontMatter, errors.SeverityError})
	assert.Contains(t, got, finding{"broken", "index.mdx", errors.ErrCodeFrontMatter, errors.SeverityWarning})
	assert.Contains(t, got, finding{"broken", "01.mdx", errors.ErrCodeFrontMatter, errors.SeverityWarning})
	assert.Contains(t, got, finding{"broken", "0201.mdx", errors.ErrCodeOrphanSubtopic, errors.SeverityError})
	assert.Contains(t, got, finding{"broken", "123.mdx", errors.ErrCodeInvalidFileName, errors.SeverityError})
	assert.Contains(t, got, finding{"broken", "notes.mdx", errors.ErrCodeInvalidFileName, errors.SeverityWarning})
	assert.Contains(t, got, finding{"broken", "drafts", errors.ErrCodeInvalidPath, errors.SeverityWarning})
	assert.Contains(t, got, finding{"no-index", "no-index", errors.ErrCodeMissingIndex, errors.SeverityError})

	for _, f := range got {
		assert.NotEqual(t, "img", f.file, "asset directory is not a problem")
	}

	err = collector.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem(s)")
}

func TestCheckEmptyRoot(t *testing.T) {
	collector, err := NewResolver(testutils.CourseFS(nil)).Check(context.Background())
	require.NoError(t, err)
	problems := collector.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, errors.SeverityWarning, problems[0].Severity)
	assert.False(t, collector.HasErrors())
}
