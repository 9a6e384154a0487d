package identitytoolkit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/syllabus/internal/auth"
)

type recorded struct {
	method string
	key    string
	body   map[string]interface{}
}

// fakeAPI answers each REST method from a canned response.
func fakeAPI(t *testing.T, responses map[string]interface{}, failures map[string]string) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/v1/")
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recorded{method: method, key: r.URL.Query().Get("key"), body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if msg, ok := failures[method]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 400, "message": msg},
			})
			return
		}
		resp := responses[method]
		if resp == nil {
			resp = map[string]interface{}{}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestSignInWithPassword(t *testing.T) {
	srv, calls := fakeAPI(t, map[string]interface{}{
		"accounts:signInWithPassword": map[string]interface{}{
			"idToken": "id-1", "email": "ada@example.com", "localId": "uid-1", "expiresIn": "3600",
		},
	}, nil)

	c := New("api-key", WithEndpoint(srv.URL+"/v1/"))
	cred, err := c.SignInWithPassword(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, &auth.Credential{UserID: "uid-1", Email: "ada@example.com", IDToken: "id-1", ExpiresIn: time.Hour}, cred)

	require.Len(t, calls(), 1)
	call := calls()[0]
	assert.Equal(t, "accounts:signInWithPassword", call.method)
	assert.Equal(t, "api-key", call.key)
	assert.Equal(t, "ada@example.com", call.body["email"])
	assert.Equal(t, true, call.body["returnSecureToken"])
}

func TestRequestShapes(t *testing.T) {
	srv, calls := fakeAPI(t, map[string]interface{}{
		"accounts:signUp":        map[string]interface{}{"idToken": "id-2", "localId": "uid-2"},
		"accounts:resetPassword": map[string]interface{}{"email": "ada@example.com", "requestType": "PASSWORD_RESET"},
		"accounts:lookup": map[string]interface{}{"users": []map[string]interface{}{
			{"localId": "uid-2", "email": "ada@example.com", "displayName": "ada", "emailVerified": true},
		}},
	}, nil)
	c := New("k", WithEndpoint(srv.URL+"/v1"))
	ctx := context.Background()

	_, err := c.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, c.UpdateProfile(ctx, "id-2", "ada"))
	require.NoError(t, c.SendEmailVerification(ctx, "id-2"))
	require.NoError(t, c.ApplyActionCode(ctx, "oob-1"))
	require.NoError(t, c.SendPasswordResetEmail(ctx, "ada@example.com"))
	email, err := c.VerifyPasswordResetCode(ctx, "oob-2")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)
	require.NoError(t, c.ConfirmPasswordReset(ctx, "oob-2", "new-pw"))
	user, err := c.LookupUser(ctx, "id-2")
	require.NoError(t, err)
	assert.Equal(t, &auth.User{UID: "uid-2", Email: "ada@example.com", DisplayName: "ada", EmailVerified: true}, user)

	want := []struct {
		method string
		field  string
		value  interface{}
	}{
		{"accounts:signUp", "email", "ada@example.com"},
		{"accounts:update", "displayName", "ada"},
		{"accounts:sendOobCode", "requestType", "VERIFY_EMAIL"},
		{"accounts:update", "oobCode", "oob-1"},
		{"accounts:sendOobCode", "requestType", "PASSWORD_RESET"},
		{"accounts:resetPassword", "oobCode", "oob-2"},
		{"accounts:resetPassword", "newPassword", "new-pw"},
		{"accounts:lookup", "idToken", "id-2"},
	}
	got := calls()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.method, got[i].method)
		assert.Equal(t, w.value, got[i].body[w.field], w.method)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := fakeAPI(t, nil, map[string]string{
		"accounts:signInWithPassword": "EMAIL_NOT_FOUND",
		"accounts:signUp":             "WEAK_PASSWORD : Password should be at least 6 characters",
		"accounts:update":             "SOMETHING_NEW",
	})
	c := New("k", WithEndpoint(srv.URL+"/v1"))
	ctx := context.Background()

	_, err := c.SignInWithPassword(ctx, "nobody@example.com", "pw")
	var pe *auth.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeUserNotFound, pe.Code)
	assert.Equal(t, "user not found", auth.NormalizeErrorCode(pe.Code))

	_, err = c.SignUp(ctx, "a@b.c", "pw")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeWeakPassword, pe.Code)

	err = c.ApplyActionCode(ctx, "x")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeInternalError, pe.Code)
}

func TestMapErrorMessage(t *testing.T) {
	tests := map[string]string{
		"EMAIL_NOT_FOUND":             auth.CodeUserNotFound,
		"INVALID_PASSWORD":            auth.CodeWrongPassword,
		"EMAIL_EXISTS":                auth.CodeEmailInUse,
		"INVALID_OOB_CODE":            auth.CodeInvalidActionCode,
		"EXPIRED_OOB_CODE":            auth.CodeExpiredActionCode,
		"TOO_MANY_ATTEMPTS_TRY_LATER": auth.CodeTooManyRequests,
		"INVALID_LOGIN_CREDENTIALS":   auth.CodeInvalidCredential,
		"INVALID_ID_TOKEN":            auth.CodeInvalidUserToken,
		"WEAK_PASSWORD : too short":   auth.CodeWeakPassword,
		"UNHEARD_OF":                  auth.CodeInternalError,
	}
	for msg, want := range tests {
		assert.Equal(t, want, MapErrorMessage(msg), msg)
	}
}

func TestNetworkAndDecodeFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	c := New("k", WithEndpoint(srv.URL))
	_, err := c.LookupUser(context.Background(), "t")
	var pe *auth.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeInternalError, pe.Code)

	srv.Close()
	_, err = c.LookupUser(context.Background(), "t")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeNetworkRequestFail, pe.Code)
}

func TestLookupWithoutUsers(t *testing.T) {
	srv, _ := fakeAPI(t, map[string]interface{}{"accounts:lookup": map[string]interface{}{"users": []interface{}{}}}, nil)
	_, err := New("k", WithEndpoint(srv.URL+"/v1")).LookupUser(context.Background(), "t")
	var pe *auth.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, auth.CodeUserNotFound, pe.Code)
}

func TestFacadeOverIdentityToolkit(t *testing.T) {
	srv, _ := fakeAPI(t, nil, map[string]string{"accounts:signInWithPassword": "EMAIL_NOT_FOUND"})
	svc := auth.NewService(New("k", WithEndpoint(srv.URL+"/v1")))

	_, err := svc.For("b").Perform(context.Background(), auth.SignIn, auth.Form{Email: "x@y.z", Password: "pw"}, "")
	assert.EqualError(t, err, "user not found")
}
