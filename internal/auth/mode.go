package auth

import (
	"strings"
)

// Mode is an account action a form can submit.
type Mode int

const (
	SignIn Mode = iota
	SignUp
	SignOut
	SendVerify
	Verify
	SendResetPassword
	ResetPassword
	ChangeUsername
)

// Modes lists every action mode.
var Modes = []Mode{SignIn, SignUp, SignOut, SendVerify, Verify, SendResetPassword, ResetPassword, ChangeUsername}

var modeNames = map[Mode]string{
	SignIn:            "sign-in",
	SignUp:            "sign-up",
	SignOut:           "sign-out",
	SendVerify:        "send-verify",
	Verify:            "verify",
	SendResetPassword: "send-reset-password",
	ResetPassword:     "reset-password",
	ChangeUsername:    "change-username",
}

// String returns the kebab-case name used in forms, URLs and the CLI.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "invalid"
}

// ParseMode parses a kebab-case mode name. Unknown names fail with the
// "invalid auth mode" validation failure.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range Modes {
		if modeNames[m] == name {
			return m, nil
		}
	}
	return -1, validationFailure(MsgInvalidMode)
}
