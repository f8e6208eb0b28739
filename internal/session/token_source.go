package session

import (
	"context"
	"net/http"

	"github.com/tyemirov/petjo-admin/pkg/tokenclaims"
	"golang.org/x/oauth2"
)

type storeTokenSource struct {
	ctx     context.Context
	manager *Manager
}

// TokenSource exposes the stored access token to outbound API clients. Each
// call re-reads the store, so a logout takes effect on the next request. An
// unusable token clears the local session and yields ErrNotAuthenticated.
func (manager *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return storeTokenSource{ctx: ctx, manager: manager}
}

// HTTPClient returns a client that authorizes every request with the stored access token.
func (manager *Manager) HTTPClient(ctx context.Context, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: manager.TokenSource(ctx),
			Base:   base,
		},
	}
}

func (source storeTokenSource) Token() (*oauth2.Token, error) {
	accessToken, ok := source.manager.validAccessToken(source.ctx)
	if !ok {
		revivedToken, revived := source.manager.discardStale(source.ctx, "token_source.unusable_token", true)
		if !revived {
			source.manager.metrics.Increment(metricTokenSourceEmpty)
			return nil, ErrNotAuthenticated
		}
		accessToken = revivedToken
	}
	claims, _ := tokenclaims.Decode(accessToken)
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      claims.ExpiresAt(),
	}, nil
}
