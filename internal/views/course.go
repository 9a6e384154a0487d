package views

import (
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/syllabus/internal/content"
)

// DateFormat renders course and lesson dates, e.g. "March 5, 2024".
const DateFormat = "January 2, 2006"

// FormatDate formats t for display.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}

// Tags renders tag links to the filtered course listing, comma separated.
func Tags(names []string) templ.Component {
	return component(func(hw *htmlWriter) { writeTags(hw, names) })
}

func writeTags(hw *htmlWriter, names []string) {
	for i, name := range names {
		hw.open("span", "class", "tag")
		hw.link(TagLink(name), name)
		hw.close("span")
		if i < len(names)-1 {
			hw.text(", ")
		}
	}
}

// Authors renders author names, linked when the author has a link.
func Authors(authors []content.Author) templ.Component {
	return component(func(hw *htmlWriter) { writeAuthors(hw, authors) })
}

func writeAuthors(hw *htmlWriter, authors []content.Author) {
	for i, a := range authors {
		if a.Link != "" {
			hw.link(a.Link, a.Name)
		} else {
			hw.element("span", a.Name)
		}
		if i < len(authors)-1 {
			hw.text(", ")
		}
	}
}

// Header is the title block shared by course and lesson pages.
func Header(meta content.Meta, readingTime string) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("header")
		hw.element("h1", meta.Title)
		hw.open("div", "class", "meta")

		hw.open("div", "class", "tags")
		writeTags(hw, meta.Tags)
		hw.close("div")

		if !meta.Modified.IsZero() {
			hw.element("time", FormatDate(meta.Modified), "datetime", meta.Modified.Format(time.RFC3339))
		}

		hw.open("address")
		writeAuthors(hw, meta.Authors)
		hw.close("address")

		hw.element("span", readingTime, "class", "reading-time")
		hw.close("div")
		hw.close("header")
	})
}

// CoursePage renders a course landing page with its contents list. body is
// the compiled landing content.
func CoursePage(page *content.CoursePage, body string) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("article", "class", "course")
		hw.render(Header(page.Course.Meta, page.Index.ReadingTime))

		hw.open("main")
		hw.raw(body)

		hw.open("div", "class", "contents")
		hw.element("h2", "Contents list")
		hw.open("ol")
		for _, topic := range page.Outline {
			hw.open("li")
			hw.link(topic.Topic.Link, topic.Topic.Title)
			if len(topic.Subtopics) > 0 {
				hw.open("ul")
				for _, sub := range topic.Subtopics {
					hw.open("li")
					hw.link(sub.Link, sub.Title)
					hw.close("li")
				}
				hw.close("ul")
			}
			hw.close("li")
		}
		hw.close("ol")
		hw.close("div")

		hw.close("main")
		hw.close("article")
	})
}

// LessonPage renders one lesson with links to its neighbours.
func LessonPage(page *content.LessonPage, body string) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("article", "class", "lesson")
		hw.render(Header(page.Meta, page.ReadingTime))

		hw.open("main")
		hw.raw(body)
		hw.close("main")

		hw.open("nav", "class", "pager")
		hw.open("div", "class", "prev")
		if page.Prev != nil {
			hw.link(page.Prev.Link, "Previous: "+page.Prev.Title)
		}
		hw.close("div")
		hw.open("div", "class", "next")
		if page.Next != nil {
			hw.link(page.Next.Link, "Next: "+page.Next.Title)
		}
		hw.close("div")
		hw.close("nav")

		hw.open("p", "class", "course-link")
		hw.link(page.Course.Link.Link, "Back to "+page.Course.Title)
		hw.close("p")
		hw.close("article")
	})
}

// CourseListData is what the course listing shows.
type CourseListData struct {
	// Courses are already filtered and sorted.
	Courses  []content.Course
	Selected []string
	Order    content.SortOrder
	// Static hides the sort form, which needs a server to apply it.
	Static bool
}

// CourseList renders the course listing with its sort select and active tag
// filter.
func CourseList(data CourseListData) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("div", "class", "listing")
		hw.element("h1", "Explore courses")

		if !data.Static {
			hw.open("form", "method", "get", "action", "/course", "class", "sort")
			for _, tag := range data.Selected {
				hw.open("input", "type", "hidden", "name", "tags", "value", tag)
			}
			hw.open("label", "for", "sortMethod")
			hw.text("Sort by:")
			hw.open("select", "id", "sortMethod", "name", "sort", "onchange", "this.form.submit()")
			for _, order := range content.SortOrders {
				hw.element("option", order.String(),
					"value", order.String(),
					"selected?", flag(order == data.Order))
			}
			hw.close("select")
			hw.close("label")
			hw.raw(`<noscript><button type="submit">Sort</button></noscript>`)
			hw.close("form")
		}

		if len(data.Selected) > 0 {
			hw.open("p", "class", "filter")
			hw.text("Tagged: ")
			writeTags(hw, data.Selected)
			hw.text(" ")
			hw.link("/course", "clear filter")
			hw.close("p")
		}

		hw.open("div", "class", "cards")
		if len(data.Courses) == 0 {
			hw.element("p", "No courses match.", "class", "empty")
		}
		for _, c := range data.Courses {
			hw.open("div", "class", "card")
			hw.open("p", "class", "title")
			hw.link(c.Link.Link, c.Link.Title)
			hw.close("p")
			if c.Description != "" {
				hw.element("p", c.Description, "class", "description")
			}
			hw.open("div", "class", "details")
			hw.open("p")
			writeTags(hw, c.Tags)
			hw.close("p")
			hw.open("p")
			writeAuthors(hw, c.Authors)
			hw.close("p")
			hw.element("p", FormatDate(c.Modified))
			hw.close("div")
			hw.close("div")
		}
		hw.close("div")
		hw.close("div")
	})
}
