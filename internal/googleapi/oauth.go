package googleapi

import (
	"context"
	"net/url"
	"time"
)

// Scopes requested for the delegated account: calendar mutation only; email
// delivery goes through a separate transport.
const calendarScope = "https://www.googleapis.com/auth/calendar"

// AuthCodeURL builds the consent URL the operator opens to delegate the
// account. access_type=offline asks Google for a refresh token.
func (g *CredentialGateway) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {g.cfg.ClientID},
		"redirect_uri":  {g.cfg.RedirectURL},
		"response_type": {"code"},
		"scope":         {calendarScope},
		"state":         {state},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return g.cfg.AuthURL + "?" + params.Encode()
}

// Exchange trades the authorization code for a credential, persists it and
// swaps it in as the gateway's live credential.
func (g *CredentialGateway) Exchange(ctx context.Context, code string) error {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
		"redirect_uri":  {g.cfg.RedirectURL},
		"grant_type":    {"authorization_code"},
	}
	resp, err := g.postTokenForm(ctx, form)
	if err != nil {
		return err
	}

	cred := Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       g.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := g.store.Save(ctx, cred); err != nil {
		return err
	}

	g.mu.Lock()
	g.cred = &cred
	g.client = newClient(g.httpClient, cred.AccessToken)
	g.mu.Unlock()

	g.log.Info("delegated account authorized")
	return nil
}
