package views

import (
	"sort"

	"github.com/a-h/templ"
)

// Inputs selects the fields a user form shows.
type Inputs struct {
	Email           bool
	Username        bool
	Password        bool
	PasswordConfirm bool
}

func (in Inputs) any() bool {
	return in.Email || in.Username || in.Password || in.PasswordConfirm
}

// Suggestion is a line of help text under the form. The clickable part
// either follows Href or submits the form with Mode.
type Suggestion struct {
	Text      string
	ClickText string
	Href      string
	Mode      string
}

// Submit is the form's main button. With Href set it is a plain link.
type Submit struct {
	Text string
	Mode string
	Href string
	// SkipValidation lets the button submit while required inputs are
	// empty, e.g. signing out from the profile form.
	SkipValidation bool
}

// FormProps configures UserForm.
type FormProps struct {
	// Header is the form title. An empty header renders a loading form
	// without a submit button.
	Header      string
	Action      string
	Inputs      Inputs
	Values      map[string]string
	Hidden      map[string]string
	Response    string
	Warning     string
	Suggestions []Suggestion
	Submit      *Submit
	Children    templ.Component
}

// UserForm is the single form used by every account page: a header, the
// selected inputs, a response and a warning line, suggestions and a
// submit button. Submitting sends the action mode as the "mode" field.
func UserForm(props FormProps) templ.Component {
	return component(func(hw *htmlWriter) {
		hw.open("div", "class", "form")
		header := props.Header
		if header == "" {
			header = "Loading ..."
		}
		hw.element("h2", header)

		hw.render(props.Children)

		action := props.Action
		if action == "" {
			action = "#"
		}
		hw.open("form", "method", "post", "action", action)

		hidden := make([]string, 0, len(props.Hidden))
		for name := range props.Hidden {
			hidden = append(hidden, name)
		}
		sort.Strings(hidden)
		for _, name := range hidden {
			hw.open("input", "type", "hidden", "name", name, "value", props.Hidden[name])
		}

		if props.Inputs.any() {
			hw.open("div", "class", "inputs")
			if props.Inputs.Email {
				writeInput(hw, "email-address", "email", "email", "email", "Email address", props.Values["email"])
			}
			if props.Inputs.Username {
				writeInput(hw, "username", "username", "text", "username", "Username", props.Values["username"])
			}
			if props.Inputs.Password {
				writeInput(hw, "password", "password", "password", "current-password", "Password", "")
			}
			if props.Inputs.PasswordConfirm {
				writeInput(hw, "password_confirm", "password_confirm", "password", "new-password", "Confirm password", "")
			}
			hw.close("div")
		}

		hw.element("p", props.Response, "class", visibility("response", props.Response), "role", "status")
		hw.element("p", props.Warning, "class", visibility("warning", props.Warning), "role", "alert")

		hw.open("div", "class", "suggestions")
		for _, s := range props.Suggestions {
			hw.open("div")
			hw.text(s.Text)
			switch {
			case s.Mode != "":
				hw.element("button", s.ClickText,
					"type", "submit", "name", "mode", "value", s.Mode,
					"class", "link", "formnovalidate?", "true")
			case s.Href != "":
				hw.link(s.Href, s.ClickText)
			}
			hw.close("div")
		}
		hw.close("div")

		if props.Header != "" && props.Submit != nil {
			hw.open("div", "class", "submit")
			if props.Submit.Href != "" {
				hw.link(props.Submit.Href, props.Submit.Text, "class", "button")
			} else {
				hw.element("button", props.Submit.Text,
					"type", "submit", "name", "mode", "value", props.Submit.Mode,
					"formnovalidate?", flag(props.Submit.SkipValidation))
			}
			hw.close("div")
		}

		hw.close("form")
		hw.close("div")
	})
}

func writeInput(hw *htmlWriter, id, name, typ, autocomplete, label, value string) {
	hw.open("div")
	hw.element("label", label, "for", id, "class", "sr-only")
	hw.open("input",
		"id", id,
		"name", name,
		"type", typ,
		"autocomplete", autocomplete,
		"placeholder", label,
		"value", value,
		"required?", "true")
	hw.close("div")
}

func visibility(class, text string) string {
	if text == "" {
		return class + " hidden"
	}
	return class
}
