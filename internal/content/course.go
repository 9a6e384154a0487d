// Package content resolves courses and lessons from a directory tree.
//
// Every course is a directory below the content root holding an index.mdx
// landing file, numbered lesson files ("01.mdx" for topics, "0102.mdx" for
// subtopics) and an image directory. Nothing is cached: each call reads the
// filesystem again.
package content

import (
	"time"
)

// Hyperlink is a titled link to a page of the site.
type Hyperlink struct {
	Title string `json:"title" yaml:"title"`
	Link  string `json:"link" yaml:"link"`
}

// Meta is the metadata shared by courses and lessons.
type Meta struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Authors     []Author  `json:"authors" yaml:"authors"`
	Created     time.Time `json:"created" yaml:"created"`
	Modified    time.Time `json:"modified" yaml:"modified"`
}

// Course is the head of a course as shown in listings.
type Course struct {
	ID   string    `json:"id" yaml:"id"`
	Link Hyperlink `json:"link" yaml:"link"`
	Meta `yaml:",inline"`
}

// HasTag reports whether the course carries tag.
func (c Course) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LessonRef identifies one lesson file inside a course.
type LessonRef struct {
	File  string `json:"file" yaml:"file"`
	Token Token  `json:"-" yaml:"-"`
	Slug  string `json:"slug" yaml:"slug"`
	Title string `json:"title" yaml:"title"`
	Link  string `json:"link" yaml:"link"`
}

// Hyperlink returns the navigation link for the lesson.
func (l LessonRef) Hyperlink() Hyperlink {
	return Hyperlink{Title: l.Title, Link: l.Link}
}

// Topic is one row of a course outline: a topic lesson and its subtopics.
type Topic struct {
	Topic     Hyperlink   `json:"topic" yaml:"topic"`
	Subtopics []Hyperlink `json:"subtopics" yaml:"subtopics"`
}

// Document is a parsed content file.
type Document struct {
	Meta
	Body        []byte
	ReadingTime string
}

// CoursePage is everything the landing page of a course shows.
type CoursePage struct {
	Course  Course
	Index   Document
	Outline []Topic
}

// LessonPage is everything a lesson page shows.
type LessonPage struct {
	Course Course
	Lesson LessonRef
	Document
	Prev *Hyperlink
	Next *Hyperlink
}

// CourseLink returns the path of a course landing page.
func CourseLink(courseID string) string { return "/" + courseID }

// LessonLink returns the path of a lesson page.
func LessonLink(courseID, slug string) string { return "/" + courseID + "/" + slug }

// AssetLink returns the public path of an image inside a course.
func AssetLink(courseID, assetDir, name string) string {
	return "/" + courseID + "/" + assetDir + "/" + name
}
