package auth

import (
	"context"
	"time"
)

// User is an account as reported by the provider.
type User struct {
	UID           string `json:"uid" yaml:"uid"`
	Email         string `json:"email" yaml:"email"`
	DisplayName   string `json:"displayName" yaml:"displayName"`
	EmailVerified bool   `json:"emailVerified" yaml:"emailVerified"`
}

// Credential is the result of signing in or up.
type Credential struct {
	UserID    string
	Email     string
	IDToken   string
	ExpiresIn time.Duration
}

// Provider is a token based identity provider. Calls carry the id token of
// the acting user where one is needed; providers keep no per-user state.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)
	SignUp(ctx context.Context, email, password string) (*Credential, error)
	UpdateProfile(ctx context.Context, idToken, displayName string) error
	SendEmailVerification(ctx context.Context, idToken string) error
	ApplyActionCode(ctx context.Context, code string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	VerifyPasswordResetCode(ctx context.Context, code string) (email string, err error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	LookupUser(ctx context.Context, idToken string) (*User, error)
}

// Action link modes understood by the /auth page.
const (
	ActionVerifyEmail   = "verifyEmail"
	ActionResetPassword = "resetPassword"
)
