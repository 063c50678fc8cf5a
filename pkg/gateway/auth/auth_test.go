package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestSessionRoundTrip(t *testing.T) {
	m, err := NewSessionManager(testSecret, "cler-app", time.Hour)
	require.NoError(t, err)

	token, expires, err := m.IssueToken(Identity{Subject: "user_1", Email: "a@b.com"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	id, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "user_1", Email: "a@b.com"}, id)
}

func TestSessionRejectsShortSecret(t *testing.T) {
	_, err := NewSessionManager("short", "cler-app", time.Hour)
	assert.Error(t, err)
}

func TestSessionExpired(t *testing.T) {
	m, err := NewSessionManager(testSecret, "cler-app", time.Minute)
	require.NoError(t, err)
	m.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.IssueToken(Identity{Subject: "user_1"})
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestSessionWrongIssuerOrKey(t *testing.T) {
	issuer, err := NewSessionManager(testSecret, "other", time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.IssueToken(Identity{Subject: "user_1"})
	require.NoError(t, err)

	verifier, err := NewSessionManager(testSecret, "cler-app", time.Hour)
	require.NoError(t, err)
	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)

	otherKey, err := NewSessionManager("ffffffffffffffffffff", "other", time.Hour)
	require.NoError(t, err)
	_, err = otherKey.ValidateToken(token)
	assert.Error(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Subject: "u1"})
	id, ok := IdentityFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.Subject)
}

func TestMemoryStateStoreSingleUse(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "abc", "/user/medications"))

	returnTo, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "/user/medications", returnTo)

	_, err = store.Consume(ctx, "abc")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "abc", "/"))
	store.nowFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := store.Consume(ctx, "abc")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestOIDCExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(UserInfo{Subject: "user_9", Email: "maria@example.com", GivenName: "Maria", FamilyName: "Silva"})
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	a, err := NewOIDCAuthenticator(provider.URL+"/", "client", "secret", "http://localhost/auth/callback", provider.Client())
	require.NoError(t, err)

	info, err := a.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "user_9", info.Subject)
	assert.Equal(t, "Maria", info.GivenName)
}

func TestOIDCAuthCodeURL(t *testing.T) {
	a, err := NewOIDCAuthenticator("https://id.example.com", "client", "secret", "http://localhost/auth/callback", nil)
	require.NoError(t, err)

	login, err := url.Parse(a.AuthCodeURL("s1", false))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", login.Path)
	assert.Equal(t, "s1", login.Query().Get("state"))
	assert.Empty(t, login.Query().Get("screen_hint"))

	signup := a.AuthCodeURL("s2", true)
	assert.True(t, strings.Contains(signup, "screen_hint=signup"))

	_, err = NewOIDCAuthenticator("", "client", "secret", "", nil)
	assert.Error(t, err)
}
