// Package renderer compiles lesson bodies to HTML.
//
// Bodies are Markdown with embedded HTML. After goldmark has produced the
// HTML, the tree is walked once to expand the components lessons may use:
// images are pointed at the course asset directory and wrapped in a figure
// with the alt text as caption, and <Youtube src> becomes an embedded
// player. Hyperlinks pass through untouched.
package renderer

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
	"github.com/conneroisu/syllabus/internal/validation"
)

// Embedded player dimensions.
const (
	VideoWidth  = "720"
	VideoHeight = "405"
)

// Renderer turns content bodies into HTML fragments.
type Renderer struct {
	md       goldmark.Markdown
	assetDir string
	logger   logging.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAssetDir sets the per-course image directory images resolve into.
func WithAssetDir(dir string) Option {
	return func(r *Renderer) {
		if dir != "" {
			r.assetDir = dir
		}
	}
}

// WithLogger sets the logger that reports dropped components.
func WithLogger(logger logging.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger.WithComponent("renderer")
		}
	}
}

// New creates a renderer with GitHub flavoured Markdown enabled.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		assetDir: content.DefaultAssetDir,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render compiles body, a lesson or landing page of courseID, to HTML.
func (r *Renderer) Render(ctx context.Context, courseID string, body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return "", errors.WrapContent(err, errors.ErrCodeRenderFailed, "cannot compile markdown", courseID)
	}

	out, err := r.expand(ctx, courseID, buf.String())
	if err != nil {
		return "", errors.WrapContent(err, errors.ErrCodeRenderFailed, "cannot expand components", courseID)
	}
	return out, nil
}

func (r *Renderer) expand(ctx context.Context, courseID, fragment string) (string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	r.walk(ctx, courseID, root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (r *Renderer) walk(ctx context.Context, courseID string, n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch {
			case c.DataAtom == atom.Img:
				next = r.expandImage(ctx, courseID, c)
			case c.Data == "youtube":
				next = r.expandVideo(ctx, c)
			default:
				r.walk(ctx, courseID, c)
			}
		}
		c = next
	}
}

// expandImage rewrites the source and wraps the image in a figure. An image
// that is the only element of its paragraph replaces the paragraph.
func (r *Renderer) expandImage(ctx context.Context, courseID string, img *html.Node) *html.Node {
	src := attr(img, "src")
	if isRelative(src) {
		name := strings.TrimPrefix(path.Clean(src), "./")
		if err := validation.ValidateAssetName(name); err != nil {
			r.logger.Warn(ctx, err, "Image source left unresolved", "course", courseID, "src", logging.SanitizeForLog(src))
		} else {
			setAttr(img, "src", content.AssetLink(courseID, r.assetDir, name))
		}
	}

	next := img.NextSibling
	figure := &html.Node{Type: html.ElementNode, Data: "figure", DataAtom: atom.Figure}

	target := img
	if p := img.Parent; p != nil && p.DataAtom == atom.P && onlyElement(p, img) {
		// The caller is walking p, which is about to be detached.
		target = p
		next = nil
	}
	target.Parent.InsertBefore(figure, target)
	target.Parent.RemoveChild(target)
	if img.Parent != nil {
		img.Parent.RemoveChild(img)
	}
	figure.AppendChild(img)

	if alt := attr(img, "alt"); alt != "" {
		caption := &html.Node{Type: html.ElementNode, Data: "figcaption", DataAtom: atom.Figcaption}
		caption.AppendChild(&html.Node{Type: html.TextNode, Data: alt})
		figure.AppendChild(caption)
	}
	return next
}

// expandVideo replaces a <Youtube src> element with an iframe wrapper. The
// HTML parser treats the custom element as open, so any content it
// swallowed is moved back after the player.
func (r *Renderer) expandVideo(ctx context.Context, el *html.Node) *html.Node {
	parent := el.Parent
	src := attr(el, "src")

	var player *html.Node
	if u, err := url.Parse(src); err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != "" {
		player = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
			Attr: []html.Attribute{{Key: "class", Val: "video"}}}
		player.AppendChild(&html.Node{
			Type:     html.ElementNode,
			Data:     "iframe",
			DataAtom: atom.Iframe,
			Attr: []html.Attribute{
				{Key: "width", Val: VideoWidth},
				{Key: "height", Val: VideoHeight},
				{Key: "src", Val: src},
				{Key: "title", Val: "YouTube video player"},
				{Key: "frameborder", Val: "0"},
				{Key: "allow", Val: "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"},
				{Key: "allowfullscreen", Val: ""},
			},
		})
		parent.InsertBefore(player, el)
	} else {
		r.logger.Warn(ctx, errors.New("invalid video source"), "Dropping video", "src", logging.SanitizeForLog(src))
	}

	var first *html.Node
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		parent.InsertBefore(c, el)
		if first == nil {
			first = c
		}
		c = next
	}
	after := el.NextSibling
	parent.RemoveChild(el)

	// Swallowed content still needs its own components expanded.
	if first != nil {
		return first
	}
	return after
}

func isRelative(src string) bool {
	if src == "" || strings.HasPrefix(src, "/") || strings.HasPrefix(src, "data:") {
		return false
	}
	u, err := url.Parse(src)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func onlyElement(parent, child *html.Node) bool {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c == child {
			continue
		}
		if c.Type == html.ElementNode {
			return false
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
