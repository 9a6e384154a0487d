// Package identitytoolkit is an auth.Provider backed by the Identity Toolkit
// REST API, the account service behind hosted email/password sign-in.
package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/logging"
)

// DefaultEndpoint is the public API root.
const DefaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// Out-of-band request types.
const (
	requestVerifyEmail   = "VERIFY_EMAIL"
	requestPasswordReset = "PASSWORD_RESET"
)

// errorCodes maps REST error messages onto provider codes.
var errorCodes = map[string]string{
	"EMAIL_NOT_FOUND":             auth.CodeUserNotFound,
	"INVALID_PASSWORD":            auth.CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   auth.CodeInvalidCredential,
	"EMAIL_EXISTS":                auth.CodeEmailInUse,
	"WEAK_PASSWORD":               auth.CodeWeakPassword,
	"INVALID_EMAIL":               auth.CodeInvalidEmail,
	"MISSING_EMAIL":               auth.CodeInvalidEmail,
	"INVALID_OOB_CODE":            auth.CodeInvalidActionCode,
	"EXPIRED_OOB_CODE":            auth.CodeExpiredActionCode,
	"USER_DISABLED":               auth.CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER": auth.CodeTooManyRequests,
	"INVALID_ID_TOKEN":            auth.CodeInvalidUserToken,
	"TOKEN_EXPIRED":               auth.CodeUserTokenExpired,
	"USER_NOT_FOUND":              auth.CodeUserNotFound,
}

// Client talks to the REST API with an API key.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at another API root, such as a local
// emulator or a test server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.WithComponent("identitytoolkit")
		}
	}
}

// New creates a client for apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ auth.Provider = (*Client)(nil)

type tokenResponse struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

func (r tokenResponse) credential() *auth.Credential {
	secs, _ := strconv.Atoi(r.ExpiresIn)
	return &auth.Credential{
		UserID:    r.LocalID,
		Email:     r.Email,
		IDToken:   r.IDToken,
		ExpiresIn: time.Duration(secs) * time.Second,
	}
}

// SignInWithPassword implements auth.Provider.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Credential, error) {
	var resp tokenResponse
	err := c.call(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.credential(), nil
}

// SignUp implements auth.Provider.
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.Credential, error) {
	var resp tokenResponse
	err := c.call(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.credential(), nil
}

// UpdateProfile implements auth.Provider.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	return c.call(ctx, "accounts:update", map[string]interface{}{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, nil)
}

// SendEmailVerification implements auth.Provider.
func (c *Client) SendEmailVerification(ctx context.Context, idToken string) error {
	return c.call(ctx, "accounts:sendOobCode", map[string]interface{}{
		"requestType": requestVerifyEmail,
		"idToken":     idToken,
	}, nil)
}

// ApplyActionCode implements auth.Provider.
func (c *Client) ApplyActionCode(ctx context.Context, code string) error {
	return c.call(ctx, "accounts:update", map[string]interface{}{
		"oobCode": code,
	}, nil)
}

// SendPasswordResetEmail implements auth.Provider.
func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	return c.call(ctx, "accounts:sendOobCode", map[string]interface{}{
		"requestType": requestPasswordReset,
		"email":       email,
	}, nil)
}

// VerifyPasswordResetCode implements auth.Provider.
func (c *Client) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	var resp struct {
		Email       string `json:"email"`
		RequestType string `json:"requestType"`
	}
	if err := c.call(ctx, "accounts:resetPassword", map[string]interface{}{
		"oobCode": code,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Email, nil
}

// ConfirmPasswordReset implements auth.Provider.
func (c *Client) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return c.call(ctx, "accounts:resetPassword", map[string]interface{}{
		"oobCode":     code,
		"newPassword": newPassword,
	}, nil)
}

// LookupUser implements auth.Provider.
func (c *Client) LookupUser(ctx context.Context, idToken string) (*auth.User, error) {
	var resp struct {
		Users []struct {
			LocalID       string `json:"localId"`
			Email         string `json:"email"`
			DisplayName   string `json:"displayName"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"users"`
	}
	if err := c.call(ctx, "accounts:lookup", map[string]interface{}{
		"idToken": idToken,
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, auth.NewProviderError(auth.CodeUserNotFound, "lookup returned no users")
	}
	u := resp.Users[0]
	return &auth.User{
		UID:           u.LocalID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
	}, nil
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call posts body to method and decodes a success response into out.
func (c *Client) call(ctx context.Context, method string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	u := c.endpoint + "/" + method + "?" + url.Values{"key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "syllabus/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn(ctx, err, "Identity Toolkit request failed", "method", method)
		return auth.NewProviderError(auth.CodeNetworkRequestFail, err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return auth.NewProviderError(auth.CodeNetworkRequestFail, err.Error())
	}

	if resp.StatusCode >= 400 {
		var er errorResponse
		if err := json.Unmarshal(payload, &er); err != nil || er.Error.Message == "" {
			return auth.NewProviderError(auth.CodeInternalError, fmt.Sprintf("status %d", resp.StatusCode))
		}
		c.logger.Debug(ctx, "Identity Toolkit rejected request", "method", method, "message", er.Error.Message)
		return auth.NewProviderError(MapErrorMessage(er.Error.Message), er.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return auth.NewProviderError(auth.CodeInternalError, "malformed response: "+err.Error())
	}
	return nil
}

// MapErrorMessage maps a REST error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to a provider
// code.
func MapErrorMessage(message string) string {
	key := message
	if i := strings.IndexAny(key, " :"); i >= 0 {
		key = key[:i]
	}
	if code, ok := errorCodes[key]; ok {
		return code
	}
	return auth.CodeInternalError
}
