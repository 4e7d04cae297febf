package session

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jarcoal/httpmock"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/aerobiclabs/aerolog/internal/cache"
)

func newTestProvider(t *testing.T) (*CacheProvider, cache.Cache) {
	t.Helper()
	r := miniredis.RunT(t)
	che, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	if err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	base, _ := url.Parse("https://backend.example.com")
	return NewCacheProvider(base, "anon-key", che, nil, log), che
}

func TestCurrentNoSession(t *testing.T) {
	p, _ := newTestProvider(t)

	sess, err := p.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestVerifyOTPStoresSession(t *testing.T) {
	p, _ := newTestProvider(t)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://backend.example.com/auth/v1/verify",
		httpmock.NewStringResponder(200, `{
			"access_token": "jwt-access",
			"refresh_token": "jwt-refresh",
			"expires_in": 3600,
			"user": {"id": "user-1", "email": "test@example.com"}
		}`))

	sess, err := p.VerifyOTP(context.Background(), "test@example.com", "123456")
	if err != nil {
		t.Fatal(err)
	}
	if sess.UserID != "user-1" || sess.Email != "test@example.com" || sess.AccessToken != "jwt-access" {
		t.Errorf("unexpected session: %+v", sess)
	}

	// The session survives a fresh Current call.
	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.UserID != "user-1" || got.AccessToken != "jwt-access" {
		t.Errorf("unexpected current session: %+v", got)
	}
}

func TestVerifyOTPRejected(t *testing.T) {
	p, _ := newTestProvider(t)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://backend.example.com/auth/v1/verify",
		httpmock.NewStringResponder(401, `{"message":"invalid code"}`))

	if _, err := p.VerifyOTP(context.Background(), "test@example.com", "000000"); err == nil {
		t.Error("expected error for rejected code")
	}

	sess, _ := p.Current(context.Background())
	if sess != nil {
		t.Errorf("no session should be stored after rejection, got %+v", sess)
	}
}

func TestCurrentRefreshesExpiredToken(t *testing.T) {
	p, che := newTestProvider(t)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://backend.example.com/auth/v1/token",
		httpmock.NewStringResponder(200, `{
			"access_token": "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type": "Bearer",
			"expires_in": 3600
		}`))

	stored := storedSession{
		UserID: "user-1",
		Email:  "test@example.com",
		Token: &oauth2.Token{
			AccessToken:  "stale-access",
			RefreshToken: "jwt-refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(-time.Hour),
		},
	}
	if err := che.SetJSON(context.Background(), sessionKey, stored); err != nil {
		t.Fatal(err)
	}

	sess, err := p.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sess.AccessToken != "fresh-access" {
		t.Errorf("expected refreshed token, got %q", sess.AccessToken)
	}

	// The refreshed token was written back.
	var after storedSession
	if err := che.GetJSON(context.Background(), sessionKey, &after); err != nil {
		t.Fatal(err)
	}
	if after.Token.AccessToken != "fresh-access" {
		t.Errorf("expected refreshed token persisted, got %q", after.Token.AccessToken)
	}
}

func TestSignOut(t *testing.T) {
	p, che := newTestProvider(t)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://backend.example.com/auth/v1/logout",
		httpmock.NewStringResponder(204, ""))

	stored := storedSession{
		UserID: "user-1",
		Token:  &oauth2.Token{AccessToken: "jwt-access", TokenType: "Bearer"},
	}
	if err := che.SetJSON(context.Background(), sessionKey, stored); err != nil {
		t.Fatal(err)
	}

	if err := p.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}

	sess, err := p.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Errorf("expected nil session after sign-out, got %+v", sess)
	}
}
