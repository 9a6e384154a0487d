package server

import (
	"bytes"
	"net/http"
	"net/url"
	"path"

	"github.com/a-h/templ"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/validation"
	"github.com/conneroisu/syllabus/internal/views"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/course", http.StatusFound)
}

func (s *Server) handleCourseList(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	query := r.URL.Query()

	order, err := content.ParseSortOrder(query.Get("sort"))
	if err != nil {
		s.logger.Debug(r.Context(), "Ignoring sort order", "reason", err.Error())
	}
	tags := query["tags"]

	courses, err := s.resolver.ListCourses(r.Context())
	if err != nil {
		s.renderError(w, r, b, err)
		return
	}

	q := content.Query{Tags: tags, Order: order}
	data := views.CourseListData{Courses: q.Apply(courses), Selected: tags, Order: order}
	s.renderPage(w, r, b, http.StatusOK, views.PageMeta{Title: "courses", Description: "Explore courses"}, views.CourseList(data))
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	page, err := s.resolver.ResolveLanding(r.Context(), r.PathValue("course"))
	if err != nil {
		s.renderError(w, r, b, err)
		return
	}

	body, err := s.renderer.Render(r.Context(), page.Course.ID, page.Index.Body)
	if err != nil {
		s.renderError(w, r, b, err)
		return
	}
	meta := views.PageMeta{Title: page.Course.Title, Description: page.Index.Description}
	s.renderPage(w, r, b, http.StatusOK, meta, views.CoursePage(page, body))
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	if !s.requireVerified(w, r, b) {
		return
	}

	courseID := r.PathValue("course")
	page, err := s.resolver.ResolveLesson(r.Context(), courseID, r.PathValue("lesson"))
	if err != nil {
		s.renderError(w, r, b, err)
		return
	}

	body, err := s.renderer.Render(r.Context(), courseID, page.Body)
	if err != nil {
		s.renderError(w, r, b, err)
		return
	}
	meta := views.PageMeta{Title: page.Title, Description: page.Description}
	s.renderPage(w, r, b, http.StatusOK, meta, views.LessonPage(page, body))
}

// handleAsset serves an image from a course's asset directory.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	courseID, dir, file := r.PathValue("course"), r.PathValue("dir"), r.PathValue("file")
	if dir != s.resolver.AssetDir() {
		s.renderError(w, r, nil, errors.NewContentError(errors.ErrCodeLessonNotFound, "no such page: "+r.URL.Path, nil))
		return
	}
	if err := validation.ValidateCourseID(courseID); err != nil {
		s.renderError(w, r, nil, errors.ErrPathTraversalAttempt(courseID))
		return
	}
	if err := validation.ValidateAssetName(file); err != nil {
		s.renderError(w, r, nil, errors.WrapValidation(err, errors.ErrCodeInvalidPath, "invalid asset name"))
		return
	}
	http.ServeFileFS(w, r, s.resolver.FS(), path.Join(courseID, dir, file))
}

// requireVerified lets signed-in, verified users through and redirects
// everybody else to the page that gets them there.
func (s *Server) requireVerified(w http.ResponseWriter, r *http.Request, b *browser) bool {
	switch b.state.AuthStatus() {
	case auth.LoggedIn:
		return true
	case auth.NotVerified:
		http.Redirect(w, r, "/verify", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/login?"+url.Values{"next": {r.URL.RequestURI()}}.Encode(), http.StatusSeeOther)
	}
	return false
}

// renderPage writes body inside the site layout. b may be nil for pages
// that have no session.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, b *browser, status int, meta views.PageMeta, body templ.Component) {
	if b != nil {
		meta.SignedIn = b.state.Present()
	}
	meta.LiveReload = s.liveReload()

	var buf bytes.Buffer
	if err := views.Layout(meta, body).Render(r.Context(), &buf); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render page", "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError logs err and answers with the matching error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, b *browser, err error) {
	status := errors.HTTPStatus(err)
	switch {
	case status == http.StatusNotFound:
		s.logger.Debug(r.Context(), "Page not found", "path", r.URL.Path, "reason", err.Error())
		s.renderPage(w, r, b, status, views.PageMeta{Title: "not found"}, views.NotFoundPage(r.URL.Path))
		return
	case status >= http.StatusInternalServerError:
		s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path)
	default:
		s.logger.Warn(r.Context(), err, "Request rejected", "path", r.URL.Path)
	}
	msg := "Something went wrong while building this page."
	if status < http.StatusInternalServerError {
		msg = "This request cannot be served."
	}
	s.renderPage(w, r, b, status, views.PageMeta{Title: "error"}, views.ErrorPage(status, msg))
}
