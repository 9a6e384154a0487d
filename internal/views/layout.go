// Package views renders the site's pages as templ components: the course
// listing, course and lesson pages, the account forms and the error pages.
package views

import (
	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SiteName is appended to every document title.
const SiteName = "Syllabus"

// PageMeta describes the document around a page body.
type PageMeta struct {
	Title       string
	Description string
	// SignedIn switches the navigation between the sign in and profile links.
	SignedIn bool
	// LiveReload injects the websocket client that reloads on content edits.
	LiveReload bool
	// Static marks pages written by the static build, which have no account
	// pages to link to.
	Static bool
}

const stylesheet = `body{font-family:system-ui,sans-serif;max-width:52rem;margin:0 auto;padding:0 1rem;line-height:1.6;color:#0f172a}
nav{display:flex;gap:1rem;padding:1rem 0;border-bottom:1px solid #64748b}
a{color:#059669}
figure{margin:1.5rem 0;text-align:center}
figcaption{font-size:.875rem;color:#64748b}
.meta{padding-left:2.5rem;font-size:.9rem}
.pager{display:grid;grid-template-columns:1fr 1fr;gap:1rem;margin:2rem 0}
.pager .next{text-align:right}
.cards{display:grid;grid-template-columns:repeat(auto-fill,minmax(16rem,1fr));gap:1rem;padding:2rem 0}
.card{border:1px solid #64748b;border-radius:.375rem;padding:1rem}
.card .details{font-size:.75rem;text-align:right}
.form{max-width:28rem;margin:3rem auto}
.form input{display:block;width:100%;padding:.75rem;box-sizing:border-box}
.response{border:1px solid #14532d;background:#86efac;padding:1rem;border-radius:.375rem}
.warning{border:1px solid #7f1d1d;background:#fca5a5;padding:1rem;border-radius:.375rem}
.hidden{display:none}
button.link{background:none;border:none;padding:0;color:#059669;cursor:pointer;font:inherit}
`

const liveReloadScript = `(function(){
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
ws.onmessage=function(e){
var msg=JSON.parse(e.data);
if(msg.type==="reload"||msg.type==="session"){location.reload();}
};
})();`

// DocumentTitle returns the <title> text for a page title. Casers carry
// state, so each call builds its own.
func DocumentTitle(title string) string {
	if title == "" {
		return SiteName
	}
	return cases.Title(language.English, cases.NoLower).String(title) + " | " + SiteName
}

// Layout wraps body in the site document.
func Layout(meta PageMeta, body templ.Component) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.raw("<!DOCTYPE html>")
		hw.open("html", "lang", "en")
		hw.open("head")
		hw.raw(`<meta charset="utf-8">`, `<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.element("title", DocumentTitle(meta.Title))
		if meta.Description != "" {
			hw.open("meta", "name", "description", "content", meta.Description)
		}
		hw.raw("<style>", stylesheet, "</style>")
		hw.close("head")

		hw.open("body")
		hw.open("nav")
		hw.link("/course", "Courses")
		switch {
		case meta.Static:
		case meta.SignedIn:
			hw.link("/profile", "Profile")
		default:
			hw.link("/login", "Sign in")
		}
		hw.close("nav")

		hw.render(body)

		if meta.LiveReload {
			hw.raw("<script>", liveReloadScript, "</script>")
		}
		hw.close("body")
		hw.close("html")
	})
}
