package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/errors"
)

func TestParseFrontMatter(t *testing.T) {
	src := []byte(`---
title: "  Go Basics "
description: First steps
tags: [go, beginner]
authors:
  - name: Ada
    link: https://example.com/ada
  - Grace
created: 2023-01-02T00:00:00Z
---
# Welcome
`)

	fm, body, err := ParseFrontMatter(src)
	require.NoError(t, err)

	assert.Equal(t, "Go Basics", fm.Title)
	assert.Equal(t, "First steps", fm.Description)
	assert.Equal(t, StringList{"go", "beginner"}, fm.Tags)
	require.Len(t, fm.Authors, 2)
	assert.Equal(t, Author{Name: "Ada", Link: "https://example.com/ada"}, fm.Authors[0])
	assert.Equal(t, Author{Name: "Grace"}, fm.Authors[1])
	require.NotNil(t, fm.Created)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), fm.Created.UTC())
	assert.Equal(t, "# Welcome\n", string(body))
}

func TestParseFrontMatterVariants(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantTags []string
		wantBody string
	}{
		{
			name:     "no front matter",
			src:      "# Just a body\n",
			wantBody: "# Just a body\n",
		},
		{
			name:     "scalar tag",
			src:      "---\ntags: go\n---\nbody",
			wantTags: []string{"go"},
			wantBody: "body",
		},
		{
			name:     "empty block",
			src:      "---\n---\nbody\n",
			wantBody: "body\n",
		},
		{
			name:     "crlf line endings",
			src:      "---\r\ntitle: x\r\n---\r\nbody\r\n",
			wantBody: "body\r\n",
		},
		{
			name:     "byte order mark",
			src:      "\xEF\xBB\xBF---\ntags: [a]\n---\n",
			wantTags: []string{"a"},
			wantBody: "",
		},
		{
			name:     "closing delimiter at end of file",
			src:      "---\ntags: [a, b]\n---",
			wantTags: []string{"a", "b"},
			wantBody: "",
		},
		{
			name:     "delimiter not on first line",
			src:      "intro\n---\ntitle: x\n---\n",
			wantBody: "intro\n---\ntitle: x\n---\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := ParseFrontMatter([]byte(tt.src))
			require.NoError(t, err)
			if tt.wantTags == nil {
				assert.Empty(t, fm.Tags)
			} else {
				assert.Equal(t, tt.wantTags, []string(fm.Tags))
			}
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestParseFrontMatterErrors(t *testing.T) {
	t.Run("unterminated", func(t *testing.T) {
		_, _, err := ParseFrontMatter([]byte("---\ntitle: x\nbody"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrFrontMatter)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, _, err := ParseFrontMatter([]byte("---\ntitle: [unclosed\n---\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrFrontMatter)
	})

	t.Run("tags as a map", func(t *testing.T) {
		_, _, err := ParseFrontMatter([]byte("---\ntags: {a: b}\n---\n"))
		require.Error(t, err)
	})
}
