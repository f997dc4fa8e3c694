package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-console/internal/models"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

type fakeAuth struct {
	session  *models.Session
	notice   *models.Notice
	err      error
	lastUser string
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.Session, error) {
	f.lastUser = req.Email
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAuth) Register(_ context.Context, req models.RegisterRequest) (*models.Notice, error) {
	f.lastUser = req.Email
	if f.err != nil {
		return nil, f.err
	}
	return f.notice, nil
}

type fakeDiscarder struct {
	discarded []models.Session
}

func (f *fakeDiscarder) Discard(_ context.Context, sess models.Session) error {
	f.discarded = append(f.discarded, sess)
	return nil
}

func authEngine(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/auth")
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.POST("/logout", h.Logout)
	g.POST("/password-strength", h.PasswordStrength)
	return r
}

func decodeEnvelope(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestLoginStoresSessionAndRedirectsHome(t *testing.T) {
	svc := &fakeAuth{session: &testSession}
	sessions := &fakeSessions{}
	r := authEngine(NewAuthHandler(svc, sessions, &fakeDiscarder{}, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", svc.lastUser)
	require.NotNil(t, sessions.saved)
	assert.Equal(t, testSession, *sessions.saved)

	body := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, HomePath, body["redirect"])
	assert.Equal(t, "Ada Admin", body["data"].(map[string]interface{})["displayName"])
	assert.NotContains(t, rec.Body.String(), "h.p.s")
}

func TestLoginWrongCredentialsStaysOnPage(t *testing.T) {
	svc := &fakeAuth{err: appErrors.WrapAs(errors.New("401"), appErrors.ErrInvalidCredentials, "")}
	sessions := &fakeSessions{}
	r := authEngine(NewAuthHandler(svc, sessions, &fakeDiscarder{}, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessions.saved)

	body := decodeEnvelope(t, rec.Body.Bytes())
	_, redirected := body["redirect"]
	assert.False(t, redirected)
	assert.Equal(t, "Failed to login: wrong credentials", body["notice"].(map[string]interface{})["text"])
}

func TestRegisterRedirectsToLogin(t *testing.T) {
	svc := &fakeAuth{notice: models.NewNotice(models.NoticeSuccess, "Success", "Registered successfully")}
	r := authEngine(NewAuthHandler(svc, &fakeSessions{}, &fakeDiscarder{}, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":           "new@example.com",
		"password":        "Secret1!",
		"confirmPassword": "Secret1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, "/login", body["redirect"])
	assert.Equal(t, "Registered successfully", body["notice"].(map[string]interface{})["text"])
}

func TestRegisterEmailInUse(t *testing.T) {
	svc := &fakeAuth{err: appErrors.WrapAs(errors.New("409"), appErrors.ErrEmailInUse, "")}
	r := authEngine(NewAuthHandler(svc, &fakeSessions{}, &fakeDiscarder{}, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "taken@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is already in use")
}

func TestLogoutDiscardsViewAndClearsCookie(t *testing.T) {
	sessions := &fakeSessions{current: testSession, has: true}
	views := &fakeDiscarder{}
	r := authEngine(NewAuthHandler(&fakeAuth{}, sessions, views, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Session{testSession}, views.discarded)
	assert.Equal(t, 1, sessions.cleared)
	assert.Equal(t, "/login", decodeEnvelope(t, rec.Body.Bytes())["redirect"])
}

func TestLogoutWithoutSession(t *testing.T) {
	sessions := &fakeSessions{}
	views := &fakeDiscarder{}
	r := authEngine(NewAuthHandler(&fakeAuth{}, sessions, views, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, views.discarded)
	assert.Equal(t, 1, sessions.cleared)
}

func TestPasswordStrengthEndpoint(t *testing.T) {
	r := authEngine(NewAuthHandler(&fakeAuth{}, &fakeSessions{}, &fakeDiscarder{}, nil))

	rec := serve(r, http.MethodPost, "/api/v1/auth/password-strength", map[string]string{"password": "Abcdef1!"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"strong"`)
}
