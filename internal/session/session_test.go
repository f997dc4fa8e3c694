package session

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/pkg/config"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func newTestStore() *Store {
	return NewStore(config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "roster_session",
		MaxAge:     time.Hour,
	}, zap.NewNop())
}

func TestDecodeReadsPayloadWithoutVerifying(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"name": "Ada Admin", "role": "admin"})

	claims, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "Ada Admin", claims["name"])

	name, err := DisplayName(token)
	require.NoError(t, err)
	assert.Equal(t, "Ada Admin", name)
}

func TestDisplayNameFallsBackToIdentityClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name": "Grace"})
	name, err := DisplayName(token)
	require.NoError(t, err)
	assert.Equal(t, "Grace", name)
}

func unsignedToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecodeIgnoresHeaderAlgorithm(t *testing.T) {
	headers := []string{
		`{"typ":"JWT"}`,
		`{"alg":"http://www.w3.org/2001/04/xmldsig-more#hmac-sha256","typ":"JWT"}`,
		`{"alg":"none"}`,
	}
	for _, header := range headers {
		name, err := DisplayName(unsignedToken(header, `{"name":"Ada"}`))
		require.NoError(t, err, header)
		assert.Equal(t, "Ada", name, header)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, token := range []string{"", "abc", "a.b", "a.!!!.c", "x.y.z.w", "a.bm90LWpzb24.c", "a.bnVsbA.c"} {
		_, err := Decode(token)
		require.Error(t, err, token)
		assert.True(t, errors.Is(err, ErrMalformedToken), token)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	require.NoError(t, store.Save(w, r, models.Session{Token: "a.b.c", DisplayName: "Ada"}))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	sess, ok := store.Current(next)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", sess.Token)
	assert.Equal(t, "Ada", sess.DisplayName)
}

func TestStoreCurrentAbsent(t *testing.T) {
	store := newTestStore()
	_, ok := store.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestStoreClearExpiresCookie(t *testing.T) {
	store := newTestStore()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, store.Save(w, r, models.Session{Token: "a.b.c", DisplayName: "Ada"}))

	next := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	for _, c := range w.Result().Cookies() {
		next.AddCookie(c)
	}
	cleared := httptest.NewRecorder()
	require.NoError(t, store.Clear(cleared, next))

	_, ok := store.Current(next)
	assert.False(t, ok)

	out := cleared.Result().Cookies()
	require.NotEmpty(t, out)
	assert.True(t, out[0].MaxAge < 0)
}
