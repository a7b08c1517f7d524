package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// OAuthRefresher exchanges stored refresh tokens for fresh access tokens
// using the per-provider oauth2 configuration it was built with. Providers
// without a configuration, such as caldav app passwords, are rejected.
type OAuthRefresher struct {
	configs map[string]*oauth2.Config
}

// NewOAuthRefresher constructs a refresher over the given provider configs.
// Nil configs are ignored.
func NewOAuthRefresher(configs map[string]*oauth2.Config) *OAuthRefresher {
	kept := make(map[string]*oauth2.Config, len(configs))
	for provider, cfg := range configs {
		if cfg != nil {
			kept[provider] = cfg
		}
	}
	return &OAuthRefresher{configs: kept}
}

// Refresh exchanges the account's refresh token. The returned account carries
// the new access token, the rotated refresh token when the provider issued
// one, and the new expiry.
func (r *OAuthRefresher) Refresh(ctx context.Context, provider string, account Account) (Account, error) {
	if r == nil {
		return Account{}, fmt.Errorf("oauth refresher is nil")
	}
	cfg, ok := r.configs[provider]
	if !ok {
		return Account{}, &GatewayError{Provider: provider, Op: "refresh", Err: fmt.Errorf("provider has no oauth configuration")}
	}
	if account.RefreshToken == "" {
		return Account{}, &GatewayError{Provider: provider, Op: "refresh", Err: fmt.Errorf("account has no refresh token")}
	}

	stale := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		// Force TokenSource to hit the token endpoint instead of
		// returning the cached access token.
		Expiry: time.Now().Add(-time.Minute),
	}
	fresh, err := cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return Account{}, &GatewayError{Provider: provider, Op: "refresh", Err: err}
	}

	refreshed := account
	refreshed.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		refreshed.RefreshToken = fresh.RefreshToken
	}
	refreshed.TokenExpiry = fresh.Expiry
	return refreshed, nil
}
