package server

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/validation"
	"github.com/conneroisu/syllabus/internal/views"
)

// submission is a parsed form post.
type submission struct {
	mode  auth.Mode
	form  auth.Form
	token string
}

func parseSubmission(r *http.Request, fallback auth.Mode) (submission, error) {
	if err := r.ParseForm(); err != nil {
		return submission{}, err
	}
	sub := submission{
		mode: fallback,
		form: auth.Form{
			Email:           validation.SanitizeInput(r.PostForm.Get("email")),
			Username:        validation.SanitizeInput(r.PostForm.Get("username")),
			Password:        r.PostForm.Get("password"),
			PasswordConfirm: r.PostForm.Get("password_confirm"),
		},
		token: r.PostForm.Get("oobCode"),
	}
	if name := r.PostForm.Get("mode"); name != "" {
		mode, err := auth.ParseMode(name)
		if err != nil {
			return sub, err
		}
		sub.mode = mode
	}
	return sub, nil
}

// perform runs a submission and stores the resulting id token in the cookie.
func (s *Server) perform(w http.ResponseWriter, r *http.Request, b *browser, sub submission) (views.FormState, error) {
	state := views.FormState{Email: sub.form.Email, Username: sub.form.Username}
	msg, err := b.facade.Perform(r.Context(), sub.mode, sub.form, sub.token)
	s.persist(w, r, b)
	if err != nil {
		state.Warning = err.Error()
		return state, err
	}
	state.Response = msg
	return state, nil
}

// formStatus is the status a re-rendered form is answered with.
func formStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case err == auth.ErrInFlight:
		return http.StatusConflict
	case auth.IsFailure(err, auth.KindProvider):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, b *browser, title string, err error, body templ.Component) {
	s.renderPage(w, r, b, formStatus(err), views.PageMeta{Title: title}, body)
}

// redirectSignedIn sends users with a session to the page matching their
// verification state.
func (s *Server) redirectSignedIn(w http.ResponseWriter, r *http.Request, b *browser) bool {
	switch b.state.AuthStatus() {
	case auth.LoggedIn:
		http.Redirect(w, r, nextPage(r, "/profile"), http.StatusSeeOther)
	case auth.NotVerified:
		http.Redirect(w, r, "/verify", http.StatusSeeOther)
	default:
		return false
	}
	return true
}

// nextPage returns the ?next= target when it stays on this site.
func nextPage(r *http.Request, fallback string) string {
	next := r.URL.Query().Get("next")
	if validation.ValidateRedirect(next) != nil {
		return fallback
	}
	return next
}

func signUpPage(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("page"), "signup")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	if s.redirectSignedIn(w, r, b) {
		return
	}
	signUp := signUpPage(r)
	title := "sign in"
	if signUp {
		title = "sign up"
	}
	s.renderForm(w, r, b, title, nil, views.LoginPage(signUp, views.FormState{}))
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	signUp := signUpPage(r)
	fallback := auth.SignIn
	if signUp {
		fallback = auth.SignUp
	}

	sub, err := parseSubmission(r, fallback)
	if err == nil && sub.mode != auth.SignIn && sub.mode != auth.SignUp {
		err = &auth.Failure{Kind: auth.KindValidation, Reason: auth.MsgInvalidMode}
	}
	if err != nil {
		s.renderForm(w, r, b, "sign in", err, views.LoginPage(signUp, views.FormState{Warning: err.Error()}))
		return
	}

	state, err := s.perform(w, r, b, sub)
	if err != nil {
		s.renderForm(w, r, b, "sign in", err, views.LoginPage(sub.mode == auth.SignUp, state))
		return
	}
	s.redirectSignedIn(w, r, b)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	switch b.state.AuthStatus() {
	case auth.LoggedIn:
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	case auth.NotVerified:
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.renderForm(w, r, b, "verify", nil, views.VerifyPage(b.state.User.Email, views.FormState{}))
}

func (s *Server) handleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	sub, err := parseSubmission(r, auth.SendVerify)
	if err == nil && sub.mode != auth.SendVerify && sub.mode != auth.SignOut {
		err = &auth.Failure{Kind: auth.KindValidation, Reason: auth.MsgInvalidMode}
	}
	var state views.FormState
	if err == nil {
		state, err = s.perform(w, r, b, sub)
		if err == nil && sub.mode == auth.SignOut {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	} else {
		state.Warning = err.Error()
	}

	email := ""
	if b.state.Present() {
		email = b.state.User.Email
	}
	s.renderForm(w, r, b, "verify", err, views.VerifyPage(email, state))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	s.renderForm(w, r, b, "reset password", nil, views.ResetPage(views.FormState{}))
}

func (s *Server) handleResetSubmit(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	sub, err := parseSubmission(r, auth.SendResetPassword)
	sub.mode = auth.SendResetPassword
	var state views.FormState
	if err == nil {
		state, err = s.perform(w, r, b, sub)
	} else {
		state.Warning = err.Error()
	}
	s.renderForm(w, r, b, "reset password", err, views.ResetPage(state))
}

// handleAction is the landing page of emailed links:
// /auth?mode=verifyEmail|resetPassword&oobCode=...
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	query := r.URL.Query()
	code := query.Get("oobCode")

	switch query.Get("mode") {
	case auth.ActionVerifyEmail:
		state, err := s.perform(w, r, b, submission{mode: auth.Verify, token: code})
		if err != nil {
			s.renderForm(w, r, b, "verify", err, views.ActionPage(views.ActionError, "", state))
			return
		}
		s.renderForm(w, r, b, "verify", nil, views.ActionPage(views.ActionVerifySuccess, "", state))

	case auth.ActionResetPassword:
		email, err := s.auth.CheckResetCode(r.Context(), code)
		if err != nil {
			s.renderForm(w, r, b, "reset password", err,
				views.ActionPage(views.ActionError, "", views.FormState{Warning: err.Error()}))
			return
		}
		s.renderForm(w, r, b, "reset password", nil,
			views.ActionPage(views.ActionResetWait, code, views.FormState{Email: email}))

	default:
		err := &auth.Failure{Kind: auth.KindValidation, Reason: auth.MsgInvalidMode}
		s.renderForm(w, r, b, "error", err, views.ActionPage(views.ActionError, "", views.FormState{Warning: err.Error()}))
	}
}

// handleActionSubmit completes a password reset started from an emailed link.
func (s *Server) handleActionSubmit(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	sub, err := parseSubmission(r, auth.ResetPassword)
	if err == nil && (sub.mode != auth.ResetPassword || r.PostForm.Get("action") != auth.ActionResetPassword) {
		err = &auth.Failure{Kind: auth.KindValidation, Reason: auth.MsgInvalidMode}
	}
	if err != nil {
		s.renderForm(w, r, b, "reset password", err,
			views.ActionPage(views.ActionError, "", views.FormState{Warning: err.Error()}))
		return
	}

	state, err := s.perform(w, r, b, sub)
	if err != nil {
		s.renderForm(w, r, b, "reset password", err, views.ActionPage(views.ActionResetWait, sub.token, state))
		return
	}
	s.renderForm(w, r, b, "reset password", nil, views.ActionPage(views.ActionResetDone, "", state))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	if !s.requireVerified(w, r, b) {
		return
	}
	s.renderForm(w, r, b, "profile", nil, views.ProfilePage(*b.state.User, views.FormState{}))
}

func (s *Server) handleProfileSubmit(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)
	if !s.requireVerified(w, r, b) {
		return
	}

	sub, err := parseSubmission(r, auth.ChangeUsername)
	if err == nil && sub.mode != auth.ChangeUsername && sub.mode != auth.SignOut {
		err = &auth.Failure{Kind: auth.KindValidation, Reason: auth.MsgInvalidMode}
	}
	var state views.FormState
	if err == nil {
		state, err = s.perform(w, r, b, sub)
		if err == nil && sub.mode == auth.SignOut {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	} else {
		state.Warning = err.Error()
	}

	user := *b.state.User
	if current := b.facade.Current(); current.Present() {
		user = *current.User
	}
	s.renderForm(w, r, b, "profile", err, views.ProfilePage(user, state))
}
