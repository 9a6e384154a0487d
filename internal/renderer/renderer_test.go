package renderer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, body string) string {
	t.Helper()
	out, err := New().Render(context.Background(), "go-basics", []byte(body))
	require.NoError(t, err)
	return out
}

func TestRenderMarkdown(t *testing.T) {
	out := render(t, "# Title\n\nSome *emphasis* and [Go](https://go.dev).\n\n| a |\n|---|\n| 1 |\n")

	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.Contains(t, out, "<em>emphasis</em>")
	assert.Contains(t, out, `<a href="https://go.dev">Go</a>`)
	assert.Contains(t, out, "<table>")
}

func TestRenderImages(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		notWant []string
	}{
		{
			name: "html image block",
			body: "<img src=\"hello.png\" alt=\"Output\" />\n",
			want: []string{
				`<figure><img src="/go-basics/img/hello.png" alt="Output"/><figcaption>Output</figcaption></figure>`,
			},
		},
		{
			name:    "markdown image alone in a paragraph",
			body:    "![Chart](chart.png)\n",
			want:    []string{`<figure><img src="/go-basics/img/chart.png" alt="Chart"/><figcaption>Chart</figcaption></figure>`},
			notWant: []string{"<p>"},
		},
		{
			name: "inline image keeps its paragraph",
			body: "See ![Chart](./chart.png) here.\n",
			want: []string{"<p>See <figure>", `src="/go-basics/img/chart.png"`},
		},
		{
			name:    "image without alt has no caption",
			body:    "<img src=\"a.jpg\">\n",
			want:    []string{`<figure><img src="/go-basics/img/a.jpg"/></figure>`},
			notWant: []string{"figcaption"},
		},
		{
			name: "absolute image untouched",
			body: "![Logo](https://cdn.example.com/logo.png)\n",
			want: []string{`src="https://cdn.example.com/logo.png"`},
		},
		{
			name:    "traversal left unresolved",
			body:    "![x](../secret.png)\n",
			want:    []string{`src="../secret.png"`},
			notWant: []string{"/go-basics/img/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.body)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestRenderYoutube(t *testing.T) {
	out := render(t, "<Youtube src=\"https://www.youtube.com/embed/xyz\" />\n\nAfter the video.\n\n![Chart](chart.png)\n")

	assert.Contains(t, out, `<div class="video"><iframe width="720" height="405" src="https://www.youtube.com/embed/xyz"`)
	assert.Contains(t, out, "allowfullscreen")
	assert.Contains(t, out, "<p>After the video.</p>")
	assert.Contains(t, out, `src="/go-basics/img/chart.png"`, "content after the player is still expanded")
	assert.NotContains(t, strings.ToLower(out), "<youtube")
	assert.Less(t, strings.Index(out, "iframe"), strings.Index(out, "After the video."))
}

func TestRenderYoutubeRejectsScripts(t *testing.T) {
	out := render(t, "<Youtube src=\"javascript:alert(1)\" />\n\nText.\n")
	assert.NotContains(t, out, "iframe")
	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, "<p>Text.</p>")
}

func TestRenderAssetDir(t *testing.T) {
	out, err := New(WithAssetDir("static")).Render(context.Background(), "c", []byte("![a](a.png)\n"))
	require.NoError(t, err)
	assert.Contains(t, out, `src="/c/static/a.png"`)
}

func TestRenderEmpty(t *testing.T) {
	out, err := New().Render(context.Background(), "c", nil)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}
