// Package session provides the current authenticated identity. The
// verified session lives in the local cache, exactly like the rest of
// the on-device state, so a restart picks up where sign-in left off.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/aerobiclabs/aerolog/internal/cache"
	"github.com/aerobiclabs/aerolog/internal/client"
	"github.com/aerobiclabs/aerolog/internal/model"
)

const sessionKey = "aerolog_session"

// Provider answers "who is signed in right now". Current returns
// (nil, nil) when nobody is; operations treat that as "skip the remote
// leg", not as an error.
type Provider interface {
	Current(ctx context.Context) (*model.Session, error)
	SignOut(ctx context.Context) error
}

// storedSession is the cache blob: identity plus the token material
// needed to refresh.
type storedSession struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email"`
	Token  *oauth2.Token `json:"token"`
}

// CacheProvider keeps the session in the local cache and refreshes the
// access token against the backend token endpoint when it expires.
type CacheProvider struct {
	cache  cache.Cache
	c      *client.Client
	oauth  *oauth2.Config
	apikey string
	log    logrus.FieldLogger
}

// NewCacheProvider builds a provider for the backend at baseURL. The
// apikey is the project's public key, sent on every auth call.
func NewCacheProvider(baseURL *url.URL, apikey string, che cache.Cache, hc *http.Client, log logrus.FieldLogger) *CacheProvider {
	c := client.NewClient(baseURL, hc)
	c.SetHeader("apikey", apikey)

	tokenURL, _ := baseURL.Parse("/auth/v1/token")
	return &CacheProvider{
		cache:  che,
		c:      c,
		oauth:  &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: tokenURL.String()}},
		apikey: apikey,
		log:    log,
	}
}

// Current returns the signed-in identity, refreshing the access token if
// it has expired. No stored session means (nil, nil).
func (p *CacheProvider) Current(ctx context.Context) (*model.Session, error) {
	var stored storedSession
	err := p.cache.GetJSON(ctx, sessionKey, &stored)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached session: %w", err)
	}
	if stored.Token == nil || stored.Token.AccessToken == "" {
		return nil, nil
	}

	if !stored.Token.Valid() && stored.Token.RefreshToken != "" {
		newToken, err := p.oauth.TokenSource(ctx, stored.Token).Token()
		if err != nil {
			return nil, fmt.Errorf("refreshing session token: %w", err)
		}
		if newToken.AccessToken != stored.Token.AccessToken {
			stored.Token = newToken
			if err := p.cache.SetJSON(ctx, sessionKey, stored); err != nil {
				p.log.WithError(err).Warn("unable to persist refreshed token")
			}
		}
	}

	return &model.Session{
		UserID:      stored.UserID,
		Email:       stored.Email,
		AccessToken: stored.Token.AccessToken,
	}, nil
}

// RequestOTP asks the backend to email a one-time code. Unknown
// addresses get an account created, matching the sign-up-on-first-login
// flow.
func (p *CacheProvider) RequestOTP(ctx context.Context, email string) error {
	body := map[string]interface{}{"email": email, "create_user": true}
	req, err := p.c.NewRequest(ctx, http.MethodPost, "/auth/v1/otp", body)
	if err != nil {
		return fmt.Errorf("creating otp request: %w", err)
	}

	resp, err := p.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("requesting otp: %w", err)
	}
	return nil
}

type verifyResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// VerifyOTP exchanges the emailed code for a session and persists it.
func (p *CacheProvider) VerifyOTP(ctx context.Context, email, code string) (*model.Session, error) {
	body := map[string]string{"type": "email", "email": email, "token": code}
	req, err := p.c.NewRequest(ctx, http.MethodPost, "/auth/v1/verify", body)
	if err != nil {
		return nil, fmt.Errorf("creating verify request: %w", err)
	}

	var vr verifyResponse
	resp, err := p.c.Do(req, &vr)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("verifying otp: %w", err)
	}
	if vr.AccessToken == "" {
		return nil, errors.New("verify response contained no access token")
	}

	stored := storedSession{
		UserID: vr.User.ID,
		Email:  vr.User.Email,
		Token: &oauth2.Token{
			AccessToken:  vr.AccessToken,
			RefreshToken: vr.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Duration(vr.ExpiresIn) * time.Second),
		},
	}
	if err := p.cache.SetJSON(ctx, sessionKey, stored); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	return &model.Session{UserID: stored.UserID, Email: stored.Email, AccessToken: vr.AccessToken}, nil
}

// SignOut invalidates the session remotely (best effort) and always
// drops the cached copy.
func (p *CacheProvider) SignOut(ctx context.Context) error {
	var stored storedSession
	if err := p.cache.GetJSON(ctx, sessionKey, &stored); err == nil && stored.Token != nil {
		req, err := p.c.NewRequest(ctx, http.MethodPost, "/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+stored.Token.AccessToken)
			resp, err := p.c.Do(req, nil)
			if resp != nil {
				defer resp.Body.Close()
			}
			if err != nil {
				p.log.WithError(err).Warn("remote sign-out failed; dropping local session anyway")
			}
		}
	}

	return p.cache.Remove(ctx, sessionKey)
}
