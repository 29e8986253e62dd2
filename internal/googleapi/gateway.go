// Package googleapi wraps access to the delegated Google account: it owns the
// stored credential, keeps a live authorized client, and retries remote calls
// exactly once per recovery step when the API answers 401.
package googleapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"

	// refreshSafety is the remaining token lifetime below which ensureReady
	// refreshes proactively.
	refreshSafety = 60 * time.Second

	remoteCallTimeout = 15 * time.Second
)

// OAuthConfig identifies the OAuth application the delegated credential was
// issued to. AuthURL and TokenURL are overridable for tests.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL  string
	TokenURL string
}

// CredentialGateway guards the (credential, client) pair for the single
// delegated account. All checks, refreshes and rebuilds happen under one
// mutex so concurrent callers never observe a half-built client.
type CredentialGateway struct {
	cfg        OAuthConfig
	store      TokenStore
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	cred   *Credential
	client *Client
}

func NewCredentialGateway(cfg OAuthConfig, store TokenStore, log *slog.Logger) *CredentialGateway {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &CredentialGateway{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: remoteCallTimeout},
		log:        log.With(slog.String("component", "googleapi.credentials")),
		now:        time.Now,
	}
}

// Execute runs op against the current client. A 401 from op triggers the
// recovery ladder: refresh the token in place and replay once; if that is
// ineffective, reload the stored credential, rebuild the client and replay
// once more; if still unauthorized, ErrAuthorizationExpired. Any other error
// from op propagates unchanged.
func (g *CredentialGateway) Execute(ctx context.Context, op func(ctx context.Context, c *Client) error) error {
	client, err := g.ensureReady(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, client)
	if !IsAuthError(err) {
		return err
	}

	g.log.Warn("401 from google api; refreshing token")
	g.mu.Lock()
	refreshErr := g.refreshLocked(ctx)
	client = g.client
	g.mu.Unlock()
	if refreshErr == nil {
		err = op(ctx, client)
		if !IsAuthError(err) {
			return err
		}
	}

	g.log.Warn("refresh ineffective; reloading stored credential and rebuilding client")
	g.mu.Lock()
	reloadErr := g.reloadLocked(ctx)
	client = g.client
	g.mu.Unlock()
	if reloadErr != nil {
		return ErrAuthorizationExpired
	}
	err = op(ctx, client)
	if IsAuthError(err) {
		return ErrAuthorizationExpired
	}
	return err
}

// ensureReady builds the client from the stored credential on first use and
// refreshes the token when its remaining lifetime is short. A failed
// proactive refresh is logged but not fatal: the current token may still be
// valid, and Execute's retry path resolves real staleness.
func (g *CredentialGateway) ensureReady(ctx context.Context) (*Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		if err := g.reloadLocked(ctx); err != nil {
			return nil, err
		}
		g.log.Info("google client initialized")
	}

	if !g.cred.Expiry.IsZero() && g.cred.Expiry.Sub(g.now()) < refreshSafety {
		if err := g.refreshLocked(ctx); err != nil {
			g.log.Warn("proactive token refresh failed", slog.Any("err", err))
		} else {
			g.log.Info("access token refreshed")
		}
	}

	return g.client, nil
}

func (g *CredentialGateway) reloadLocked(ctx context.Context) error {
	cred, err := g.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("load credential: %w", err)
	}
	g.cred = &cred
	g.client = newClient(g.httpClient, cred.AccessToken)
	return nil
}

func (g *CredentialGateway) refreshLocked(ctx context.Context) error {
	if g.cred == nil || g.cred.RefreshToken == "" {
		return errors.New("no refresh token")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {g.cred.RefreshToken},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
	}
	resp, err := g.postTokenForm(ctx, form)
	if err != nil {
		return err
	}

	g.cred.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		g.cred.RefreshToken = resp.RefreshToken
	}
	g.cred.Expiry = g.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	g.client = newClient(g.httpClient, g.cred.AccessToken)

	if err := g.store.Save(ctx, *g.cred); err != nil {
		g.log.Warn("persisting refreshed credential failed", slog.Any("err", err))
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (g *CredentialGateway) postTokenForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}
	return &tr, nil
}
