package local

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
)

// MinPasswordLength is the shortest password accepted on sign up or reset.
const MinPasswordLength = 6

// Provider implements auth.Provider on a gorm database.
type Provider struct {
	db        *gorm.DB
	secret    []byte
	tokenTTL  time.Duration
	codeTTL   time.Duration
	actionURL string
	cost      int
	mailer    Mailer
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

func WithTokenTTL(d time.Duration) Option {
	return func(p *Provider) { p.tokenTTL = tokenLifetime(d) }
}

func WithCodeTTL(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.codeTTL = d
		}
	}
}

// WithActionURL sets the page emailed links point at, normally the /auth
// route of the server.
func WithActionURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.actionURL = u
		}
	}
}

func WithMailer(m Mailer) Option {
	return func(p *Provider) {
		if m != nil {
			p.mailer = m
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger.WithComponent("auth.local")
		}
	}
}

// WithPasswordCost sets the bcrypt cost.
func WithPasswordCost(cost int) Option {
	return func(p *Provider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.cost = cost
		}
	}
}

// WithClock replaces time.Now for token and code expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a provider over db, which must already be migrated. secret
// signs id tokens.
func New(db *gorm.DB, secret string, opts ...Option) (*Provider, error) {
	if db == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "auth database is required")
	}
	if secret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "token secret is required")
	}
	p := &Provider{
		db:        db,
		secret:    []byte(secret),
		tokenTTL:  time.Hour,
		codeTTL:   24 * time.Hour,
		actionURL: "http://localhost:8080/auth",
		cost:      bcrypt.DefaultCost,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.mailer == nil {
		p.mailer = NewLogMailer(p.logger)
	}
	return p, nil
}

var _ auth.Provider = (*Provider)(nil)

// SignInWithPassword implements auth.Provider.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Credential, error) {
	acct, err := p.accountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct.Disabled {
		return nil, auth.NewProviderError(auth.CodeUserDisabled, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, auth.NewProviderError(auth.CodeWrongPassword, "")
	}
	return p.issueToken(acct)
}

// SignUp implements auth.Provider.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*auth.Credential, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, auth.NewProviderError(auth.CodeInvalidEmail, "")
	}
	if len(password) < MinPasswordLength {
		return nil, auth.NewProviderError(auth.CodeWeakPassword, "password should be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, auth.NewProviderError(auth.CodeInternalError, err.Error())
	}

	acct := &Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := p.db.WithContext(ctx).Create(acct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.NewProviderError(auth.CodeEmailInUse, "")
		}
		return nil, p.storeError(ctx, "create account", err)
	}
	p.logger.Info(ctx, "Account created", "uid", acct.ID)
	return p.issueToken(acct)
}

// UpdateProfile implements auth.Provider.
func (p *Provider) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	acct, err := p.accountByToken(ctx, idToken)
	if err != nil {
		return err
	}
	if err := p.db.WithContext(ctx).Model(acct).Update("display_name", displayName).Error; err != nil {
		return p.storeError(ctx, "update profile", err)
	}
	return nil
}

// SendEmailVerification implements auth.Provider.
func (p *Provider) SendEmailVerification(ctx context.Context, idToken string) error {
	acct, err := p.accountByToken(ctx, idToken)
	if err != nil {
		return err
	}
	return p.sendCode(ctx, acct, auth.ActionVerifyEmail)
}

// ApplyActionCode implements auth.Provider. Only verification codes can be
// applied; reset codes go through ConfirmPasswordReset.
func (p *Provider) ApplyActionCode(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ac, err := p.consumeCode(tx, code, auth.ActionVerifyEmail)
		if err != nil {
			return err
		}
		res := tx.Model(&Account{}).Where("id = ?", ac.AccountID).Update("email_verified", true)
		if res.Error != nil {
			return p.storeError(ctx, "verify email", res.Error)
		}
		if res.RowsAffected == 0 {
			return auth.NewProviderError(auth.CodeUserNotFound, "")
		}
		return nil
	})
}

// SendPasswordResetEmail implements auth.Provider.
func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	acct, err := p.accountByEmail(ctx, email)
	if err != nil {
		return err
	}
	return p.sendCode(ctx, acct, auth.ActionResetPassword)
}

// VerifyPasswordResetCode implements auth.Provider.
func (p *Provider) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	ac, err := p.validCode(p.db.WithContext(ctx), code, auth.ActionResetPassword)
	if err != nil {
		return "", err
	}
	return ac.Email, nil
}

// ConfirmPasswordReset implements auth.Provider.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return auth.NewProviderError(auth.CodeWeakPassword, "password should be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return auth.NewProviderError(auth.CodeInternalError, err.Error())
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ac, err := p.consumeCode(tx, code, auth.ActionResetPassword)
		if err != nil {
			return err
		}
		if err := tx.Model(&Account{}).Where("id = ?", ac.AccountID).Update("password_hash", string(hash)).Error; err != nil {
			return p.storeError(ctx, "reset password", err)
		}
		return nil
	})
}

// LookupUser implements auth.Provider.
func (p *Provider) LookupUser(ctx context.Context, idToken string) (*auth.User, error) {
	acct, err := p.accountByToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &auth.User{
		UID:           acct.ID,
		Email:         acct.Email,
		DisplayName:   acct.DisplayName,
		EmailVerified: acct.EmailVerified,
	}, nil
}

// Disable blocks an account from signing in.
func (p *Provider) Disable(ctx context.Context, email string) error {
	res := p.db.WithContext(ctx).Model(&Account{}).Where("email = ?", normalizeEmail(email)).Update("disabled", true)
	if res.Error != nil {
		return p.storeError(ctx, "disable account", res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.NewProviderError(auth.CodeUserNotFound, "")
	}
	return nil
}

func (p *Provider) accountByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.NewProviderError(auth.CodeUserNotFound, "")
	}
	if err != nil {
		return nil, p.storeError(ctx, "find account", err)
	}
	return &acct, nil
}

func (p *Provider) accountByToken(ctx context.Context, idToken string) (*Account, error) {
	uid, err := p.parseToken(idToken)
	if err != nil {
		return nil, err
	}
	var acct Account
	err = p.db.WithContext(ctx).First(&acct, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.NewProviderError(auth.CodeUserNotFound, "")
	}
	if err != nil {
		return nil, p.storeError(ctx, "find account", err)
	}
	if acct.Disabled {
		return nil, auth.NewProviderError(auth.CodeUserDisabled, "")
	}
	return &acct, nil
}

func (p *Provider) sendCode(ctx context.Context, acct *Account, action string) error {
	ac := &ActionCode{
		Code:      uuid.NewString(),
		Kind:      action,
		AccountID: acct.ID,
		Email:     acct.Email,
		ExpiresAt: p.now().Add(p.codeTTL),
	}
	if err := p.db.WithContext(ctx).Create(ac).Error; err != nil {
		return p.storeError(ctx, "create action code", err)
	}
	msg := Message{To: acct.Email, Action: action, Code: ac.Code, Link: p.actionLink(action, ac.Code)}
	if err := p.mailer.Send(ctx, msg); err != nil {
		p.logger.Error(ctx, err, "Failed to deliver action link", "action", action)
		return auth.NewProviderError(auth.CodeInternalError, "failed to deliver email")
	}
	return nil
}

// actionLink builds {actionURL}?mode=...&oobCode=....
func (p *Provider) actionLink(action, code string) string {
	sep := "?"
	if strings.Contains(p.actionURL, "?") {
		sep = "&"
	}
	return p.actionURL + sep + url.Values{"mode": {action}, "oobCode": {code}}.Encode()
}

func (p *Provider) validCode(tx *gorm.DB, code, kind string) (*ActionCode, error) {
	var ac ActionCode
	err := tx.First(&ac, "code = ? AND kind = ?", code, kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.NewProviderError(auth.CodeInvalidActionCode, "")
	}
	if err != nil {
		return nil, auth.NewProviderError(auth.CodeInternalError, err.Error())
	}
	if ac.UsedAt != nil {
		return nil, auth.NewProviderError(auth.CodeInvalidActionCode, "code already used")
	}
	if !p.now().Before(ac.ExpiresAt) {
		return nil, auth.NewProviderError(auth.CodeExpiredActionCode, "")
	}
	return &ac, nil
}

func (p *Provider) consumeCode(tx *gorm.DB, code, kind string) (*ActionCode, error) {
	ac, err := p.validCode(tx, code, kind)
	if err != nil {
		return nil, err
	}
	used := p.now()
	res := tx.Model(&ActionCode{}).Where("code = ? AND used_at IS NULL", ac.Code).Update("used_at", used)
	if res.Error != nil {
		return nil, auth.NewProviderError(auth.CodeInternalError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return nil, auth.NewProviderError(auth.CodeInvalidActionCode, "code already used")
	}
	ac.UsedAt = &used
	return ac, nil
}

func (p *Provider) storeError(ctx context.Context, op string, err error) error {
	p.logger.Error(ctx, err, "Account store failure", "operation", op)
	return auth.NewProviderError(auth.CodeInternalError, op+": "+err.Error())
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
