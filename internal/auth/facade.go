// Package auth performs account actions against an identity provider.
//
// A Service owns the provider, the in-flight guard and the registry of
// browser sessions. Service.For binds it to one browser session, giving a
// Facade whose Perform validates a submitted form, calls the provider and
// answers with a user-facing message. Validation failures never reach the
// provider; provider failures come back as normalized phrases such as
// "user not found".
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/conneroisu/syllabus/internal/logging"
)

// Form is a submitted user form.
type Form struct {
	Email           string `json:"email" form:"email"`
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
}

// Service performs account actions for every browser session.
type Service struct {
	provider Provider
	guard    *Guard
	sessions *Sessions
	logger   logging.Logger
	now      func() time.Time
	recheck  time.Duration
}

// DefaultRecheckInterval is how long a restored session is trusted before
// its id token is looked up again.
const DefaultRecheckInterval = 5 * time.Minute

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.WithComponent("auth")
		}
	}
}

// WithSessions shares an existing session registry.
func WithSessions(sessions *Sessions) ServiceOption {
	return func(s *Service) {
		if sessions != nil {
			s.sessions = sessions
		}
	}
}

// WithClock replaces time.Now for session expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecheckInterval sets how long a session without a known token
// lifetime is trusted before the provider is asked again.
func WithRecheckInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.recheck = d
		}
	}
}

// NewService creates a service over provider.
func NewService(provider Provider, opts ...ServiceOption) *Service {
	s := &Service{
		provider: provider,
		guard:    NewGuard(),
		sessions: NewSessions(),
		logger:   logging.Discard(),
		now:      time.Now,
		recheck:  DefaultRecheckInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the session registry.
func (s *Service) Sessions() *Sessions { return s.sessions }

// Guard returns the in-flight guard.
func (s *Service) Guard() *Guard { return s.guard }

// For returns the façade of one browser session. The session is only
// registered once the façade's state is used.
func (s *Service) For(sessionID string) *Facade {
	return &Facade{service: s, key: sessionID}
}

// Restore resolves the session of a browser that presents a stored id
// token. A token the provider rejects, expired ones included, leaves the
// session absent. Only signed-in sessions, and sessions something already
// watches, are kept in the registry. A resolved session is returned as is
// until its ValidUntil passes, after which its token is looked up again.
func (s *Service) Restore(ctx context.Context, sessionID, idToken string) SessionState {
	state, tracked := s.sessions.Lookup(sessionID)
	if tracked {
		current := state.Current()
		switch {
		case s.expired(current):
			idToken = current.IDToken
		case current.Status != StatusUnknown:
			return current
		}
	}

	next := s.resolve(ctx, sessionID, idToken)
	switch {
	case tracked:
		state.Set(next)
	case next.Present():
		s.sessions.Get(sessionID).Set(next)
	}
	return next
}

func (s *Service) resolve(ctx context.Context, sessionID, idToken string) SessionState {
	if idToken == "" {
		return SessionState{Status: StatusAbsent}
	}
	user, err := s.provider.LookupUser(ctx, idToken)
	if err != nil {
		s.logger.Debug(ctx, "Stored session rejected", "session", sessionID, "reason", err.Error())
		return SessionState{Status: StatusAbsent}
	}
	return SessionState{
		Status:     StatusPresent,
		User:       user,
		IDToken:    idToken,
		ValidUntil: s.validUntil(0),
	}
}

func (s *Service) expired(state SessionState) bool {
	return state.Present() && !state.ValidUntil.IsZero() && !s.now().Before(state.ValidUntil)
}

// validUntil is the recheck deadline for a token that lives for ttl.
func (s *Service) validUntil(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = s.recheck
	}
	return s.now().Add(ttl)
}

// CheckResetCode verifies a password reset code and returns the account
// email it was issued for.
func (s *Service) CheckResetCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", validationFailure(MsgNoToken)
	}
	email, err := s.provider.VerifyPasswordResetCode(ctx, code)
	if err != nil {
		return "", &Failure{Kind: KindProvider, Reason: MsgInvalidResetLink}
	}
	return email, nil
}

// Facade performs actions for one browser session.
type Facade struct {
	service *Service
	key     string
	state   *Observable
}

// State returns the session observable, registering the session.
func (f *Facade) State() *Observable {
	if f.state == nil {
		f.state = f.service.sessions.Get(f.key)
	}
	return f.state
}

// Current returns the session state without registering the session. An
// untracked session is absent.
func (f *Facade) Current() SessionState {
	if f.state == nil {
		o, ok := f.service.sessions.Lookup(f.key)
		if !ok {
			return SessionState{Status: StatusAbsent}
		}
		f.state = o
	}
	return f.state.Current()
}

// Perform runs mode with form. token is the action code from an emailed
// link for Verify and ResetPassword. The returned message is shown to the
// user on success; errors are *Failure values whose Error is shown on
// failure.
func (f *Facade) Perform(ctx context.Context, mode Mode, form Form, token string) (string, error) {
	release, err := f.service.guard.Acquire(f.key)
	if err != nil {
		return "", err
	}
	defer release()

	logger := f.service.logger
	logger.Debug(ctx, "Performing auth action", "mode", mode.String(), "session", f.key)

	msg, err := f.perform(ctx, mode, form, token)
	if err != nil {
		fields := []interface{}{"mode", mode.String(), "session", f.key, "reason", err.Error()}
		fields = append(fields, logging.RedactFields("email", form.Email, "token", token)...)
		logger.Info(ctx, "Auth action failed", fields...)
		return "", err
	}
	logger.Info(ctx, "Auth action succeeded", "mode", mode.String(), "session", f.key)
	return msg, nil
}

func (f *Facade) perform(ctx context.Context, mode Mode, form Form, token string) (string, error) {
	p := f.service.provider
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)

	switch mode {
	case SignIn:
		if form.Email == "" {
			return "", validationFailure(MsgEmailRequired)
		}
		if form.Password == "" {
			return "", validationFailure(MsgPasswordRequired)
		}
		cred, err := p.SignInWithPassword(ctx, form.Email, form.Password)
		if err != nil {
			return "", providerFailure(err)
		}
		if err := f.refresh(ctx, cred.IDToken, f.service.validUntil(cred.ExpiresIn)); err != nil {
			return "", err
		}
		return MsgSignedIn, nil

	case SignUp:
		if form.Email == "" {
			return "", validationFailure(MsgEmailRequired)
		}
		if form.Username == "" {
			return "", validationFailure(MsgUsernameRequired)
		}
		if err := checkPasswords(form); err != nil {
			return "", err
		}
		cred, err := p.SignUp(ctx, form.Email, form.Password)
		if err != nil {
			return "", providerFailure(err)
		}
		if err := p.UpdateProfile(ctx, cred.IDToken, form.Username); err != nil {
			return "", providerFailure(err)
		}
		if err := p.SendEmailVerification(ctx, cred.IDToken); err != nil {
			return "", providerFailure(err)
		}
		if err := f.refresh(ctx, cred.IDToken, f.service.validUntil(cred.ExpiresIn)); err != nil {
			return "", err
		}
		return MsgSignedUp, nil

	case SignOut:
		f.State().Set(SessionState{Status: StatusAbsent})
		f.service.sessions.Release(f.key)
		return MsgSignedOut, nil

	case SendVerify:
		current := f.Current()
		if !current.Present() {
			return "", validationFailure(MsgNoUser)
		}
		if err := p.SendEmailVerification(ctx, current.IDToken); err != nil {
			return "", providerFailure(err)
		}
		return MsgVerificationSent, nil

	case Verify:
		if token == "" {
			return "", validationFailure(MsgNoToken)
		}
		if err := p.ApplyActionCode(ctx, token); err != nil {
			return "", providerFailure(err)
		}
		if current := f.Current(); current.Present() {
			if err := f.refresh(ctx, current.IDToken, current.ValidUntil); err != nil {
				return "", err
			}
		}
		return MsgVerified, nil

	case SendResetPassword:
		if form.Email == "" {
			return "", validationFailure(MsgEmailRequired)
		}
		if err := p.SendPasswordResetEmail(ctx, form.Email); err != nil {
			return "", providerFailure(err)
		}
		return MsgResetLinkSent, nil

	case ResetPassword:
		if token == "" {
			return "", validationFailure(MsgNoToken)
		}
		if _, err := p.VerifyPasswordResetCode(ctx, token); err != nil {
			return "", &Failure{Kind: KindProvider, Reason: MsgInvalidResetLink}
		}
		if err := checkPasswords(form); err != nil {
			return "", err
		}
		if err := p.ConfirmPasswordReset(ctx, token, form.Password); err != nil {
			return "", providerFailure(err)
		}
		return MsgPasswordReset, nil

	case ChangeUsername:
		current := f.Current()
		if !current.Present() {
			return "", validationFailure(MsgNoUser)
		}
		if form.Username == "" {
			return "", validationFailure(MsgUsernameRequired)
		}
		if err := p.UpdateProfile(ctx, current.IDToken, form.Username); err != nil {
			return "", providerFailure(err)
		}
		if err := f.refresh(ctx, current.IDToken, current.ValidUntil); err != nil {
			return "", err
		}
		return MsgUsernameChanged, nil

	default:
		return "", validationFailure(MsgInvalidMode)
	}
}

// refresh re-reads the user behind idToken and publishes it.
func (f *Facade) refresh(ctx context.Context, idToken string, validUntil time.Time) error {
	user, err := f.service.provider.LookupUser(ctx, idToken)
	if err != nil {
		return providerFailure(err)
	}
	f.State().Set(SessionState{
		Status:     StatusPresent,
		User:       user,
		IDToken:    idToken,
		ValidUntil: validUntil,
	})
	return nil
}

func checkPasswords(form Form) error {
	if form.Password == "" || form.PasswordConfirm == "" {
		return validationFailure(MsgPasswordRequired)
	}
	if form.Password != form.PasswordConfirm {
		return validationFailure(MsgPasswordMismatch)
	}
	return nil
}
