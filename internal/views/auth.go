package views

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	"github.com/conneroisu/syllabus/internal/auth"
)

// FormState carries the outcome of the last submission back into a form.
type FormState struct {
	Response string
	Warning  string
	Email    string
	Username string
}

func (s FormState) values() map[string]string {
	return map[string]string{"email": s.Email, "username": s.Username}
}

// LoginPage is the sign in form, or the sign up form when signUp is set.
func LoginPage(signUp bool, state FormState) templ.Component {
	if signUp {
		return UserForm(FormProps{
			Header: "Sign up",
			Action: "/login?page=signup",
			Inputs: Inputs{Email: true, Username: true, Password: true, PasswordConfirm: true},
			Values: state.values(),
			Suggestions: []Suggestion{
				{Text: "If you already have your account, ", ClickText: "sign in here.", Href: "/login"},
			},
			Submit:   &Submit{Text: "sign up", Mode: auth.SignUp.String()},
			Response: state.Response,
			Warning:  state.Warning,
		})
	}
	return UserForm(FormProps{
		Header: "Sign in",
		Action: "/login",
		Inputs: Inputs{Email: true, Password: true},
		Values: state.values(),
		Suggestions: []Suggestion{
			{Text: "Forget password? ", ClickText: "reset password here.", Href: "/reset"},
			{Text: "If you do not have your account, ", ClickText: "sign up here.", Href: "/login?page=signup"},
		},
		Submit:   &Submit{Text: "sign in", Mode: auth.SignIn.String()},
		Response: state.Response,
		Warning:  state.Warning,
	})
}

// VerifyPage asks a signed-in user to confirm their email address.
func VerifyPage(email string, state FormState) templ.Component {
	return UserForm(FormProps{
		Header: "Verification needed",
		Action: "/verify",
		Suggestions: []Suggestion{{
			Text: "You need to verify your email (" + email + ") by clicking into the link we sent to your email. " +
				"If you did not receive the email, you can ",
			ClickText: "click here to get a new one.",
			Mode:      auth.SendVerify.String(),
		}},
		Submit:   &Submit{Text: "sign out", Mode: auth.SignOut.String()},
		Response: state.Response,
		Warning:  state.Warning,
	})
}

// ResetPage asks for the email address to send a recovery link to.
func ResetPage(state FormState) templ.Component {
	return UserForm(FormProps{
		Header: "Reset password",
		Action: "/reset",
		Inputs: Inputs{Email: true},
		Values: state.values(),
		Suggestions: []Suggestion{
			{Text: "Please put your email address above, we will send a recovery link to your email."},
		},
		Submit:   &Submit{Text: "get a recovery link", Mode: auth.SendResetPassword.String()},
		Response: state.Response,
		Warning:  state.Warning,
	})
}

// ActionStatus is the outcome of following an emailed action link.
type ActionStatus int

const (
	ActionVerifySuccess ActionStatus = iota
	ActionResetWait
	ActionResetDone
	ActionError
)

// ActionPage renders the /auth landing page for an emailed link. code is
// the action code, carried into the reset form.
func ActionPage(status ActionStatus, code string, state FormState) templ.Component {
	switch status {
	case ActionVerifySuccess:
		return UserForm(FormProps{
			Header:   "Verification done!",
			Response: state.Response,
			Submit:   &Submit{Text: "go to profile", Href: "/profile"},
		})
	case ActionResetWait:
		return UserForm(FormProps{
			Header: "Reset password",
			Action: "/auth",
			Inputs: Inputs{Password: true, PasswordConfirm: true},
			Hidden: map[string]string{
				"action":  auth.ActionResetPassword,
				"oobCode": code,
			},
			Submit:   &Submit{Text: "submit", Mode: auth.ResetPassword.String()},
			Response: state.Response,
			Warning:  state.Warning,
		})
	case ActionResetDone:
		return UserForm(FormProps{
			Header:   "Password changed",
			Response: state.Response,
			Submit:   &Submit{Text: "back to sign in page", Href: "/login"},
		})
	default:
		return UserForm(FormProps{
			Header: "Authentication error",
			Suggestions: []Suggestion{
				{Text: "The link you used is invalid or has expired. Please try again."},
			},
			Warning: state.Warning,
			Submit:  &Submit{Text: "back to sign in page", Href: "/login"},
		})
	}
}

// ProfilePage shows the signed-in account.
func ProfilePage(user auth.User, state FormState) templ.Component {
	details := component(func(hw *htmlWriter) {
		hw.open("dl", "class", "profile")
		for _, row := range [][2]string{
			{"Email", user.Email},
			{"Username", user.DisplayName},
			{"User ID", user.UID},
		} {
			hw.open("div")
			hw.element("dt", row[0])
			hw.element("dd", row[1])
			hw.close("div")
		}
		hw.close("dl")
	})

	return UserForm(FormProps{
		Header:   "Your profile",
		Action:   "/profile",
		Children: details,
		Inputs:   Inputs{Username: true},
		Values:   map[string]string{"username": user.DisplayName},
		Suggestions: []Suggestion{
			{ClickText: "Change username", Mode: auth.ChangeUsername.String()},
			{ClickText: "Reset password", Href: "/reset"},
		},
		Submit:   &Submit{Text: "sign out", Mode: auth.SignOut.String(), SkipValidation: true},
		Response: state.Response,
		Warning:  state.Warning,
	})
}

// NotFoundPage is the 404 body.
func NotFoundPage(path string) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("div", "class", "error")
		hw.element("h1", "Page not found")
		hw.element("p", "There is nothing at "+path+".")
		hw.link("/course", "Browse all courses")
		hw.close("div")
	})
}

// ErrorPage is the body of any other error answer.
func ErrorPage(status int, message string) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("div", "class", "error")
		hw.element("h1", fmt.Sprintf("%d %s", status, http.StatusText(status)))
		hw.element("p", message)
		hw.link("/course", "Browse all courses")
		hw.close("div")
	})
}
