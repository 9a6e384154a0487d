package content

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/errors"
)

func TestFileNameToURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"index.mdx", ""},
		{"01.mdx", "lesson-01"},
		{"12.mdx", "lesson-12"},
		{"0102.mdx", "lesson-01-02"},
		{"9999.mdx", "lesson-99-99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileNameToURL(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileNameToURLRejectsInvalidTokens(t *testing.T) {
	invalid := []string{
		"1.mdx",
		"123.mdx",
		"01020.mdx",
		"010203.mdx",
		"ab.mdx",
		"00.mdx",
		"0100.mdx",
		"01.md",
		"01",
		"../01.mdx",
		"",
	}

	for _, name := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := FileNameToURL(name)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidFileName)
		})
	}
}

func TestURLToFileName(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"", "index.mdx"},
		{"lesson-01", "01.mdx"},
		{"lesson-01-02", "0102.mdx"},
		{"lesson-99-99", "9999.mdx"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			got, err := URLToFileName(tt.slug)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLToFileNameRejectsInvalidSlugs(t *testing.T) {
	invalid := []string{
		"lesson",
		"lesson-",
		"lesson-1",
		"lesson-001",
		"lesson-01-2",
		"lesson-01-02-03",
		"lesson-0102",
		"lesson-00",
		"lesson-01-00",
		"chapter-01",
		"lesson-ab",
	}

	for _, slug := range invalid {
		t.Run(slug, func(t *testing.T) {
			_, err := URLToFileName(slug)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidSlug)
		})
	}
}

func TestSlugRoundTripAllTokens(t *testing.T) {
	for topic := 1; topic <= MaxTopic; topic++ {
		names := []string{fmt.Sprintf("%02d.mdx", topic)}
		for sub := 1; sub <= MaxSubtopic; sub++ {
			names = append(names, fmt.Sprintf("%02d%02d.mdx", topic, sub))
		}
		for _, name := range names {
			slug, err := FileNameToURL(name)
			require.NoError(t, err, name)
			back, err := URLToFileName(slug)
			require.NoError(t, err, slug)
			require.Equal(t, name, back)
		}
	}

	slug, err := FileNameToURL(IndexFile)
	require.NoError(t, err)
	back, err := URLToFileName(slug)
	require.NoError(t, err)
	assert.Equal(t, IndexFile, back)
}

func TestTokenOrdering(t *testing.T) {
	a, _ := ParseToken("01")
	b, _ := ParseToken("0101")
	c, _ := ParseToken("0110")
	d, _ := ParseToken("02")

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(d))
	assert.False(t, d.Less(a))
	assert.True(t, a.IsTopic())
	assert.False(t, b.IsTopic())
	assert.Equal(t, "0110", c.String())
}
