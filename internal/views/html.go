package views

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter writes markup and remembers the first error, so components
// can be written as straight-line code.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (hw *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, s)
	}
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// open writes a start tag. attrs alternate name and value. A name ending in
// "?" is a boolean attribute, written bare when its value is non-empty.
func (hw *htmlWriter) open(tag string, attrs ...string) {
	hw.raw("<", tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		name, val := attrs[i], attrs[i+1]
		if strings.HasSuffix(name, "?") {
			if val != "" {
				hw.raw(" ", strings.TrimSuffix(name, "?"))
			}
			continue
		}
		hw.raw(" ", name, `="`, templ.EscapeString(val), `"`)
	}
	hw.raw(">")
}

func (hw *htmlWriter) close(tag string) {
	hw.raw("</", tag, ">")
}

// element writes a start tag, escaped text and the end tag.
func (hw *htmlWriter) element(tag, body string, attrs ...string) {
	hw.open(tag, attrs...)
	hw.text(body)
	hw.close(tag)
}

func (hw *htmlWriter) link(href, body string, attrs ...string) {
	hw.element("a", body, append([]string{"href", string(templ.URL(href))}, attrs...)...)
}

func (hw *htmlWriter) render(c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(hw.ctx, hw.w)
}

func flag(b bool) string {
	if b {
		return "true"
	}
	return ""
}

// component adapts straight-line writer code to a templ.Component.
func component(fn func(hw *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newWriter(ctx, w)
		fn(hw)
		return hw.err
	})
}

// TagLink returns the course listing filtered by one tag.
func TagLink(tag string) string {
	return "/course?" + url.Values{"tags": {tag}}.Encode()
}

// Render renders c to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
