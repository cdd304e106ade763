// Package airkey manages credentials in the EVVA Airkey access-control
// platform: the observed keyholder state and the operations converging it.
package airkey

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
	"github.com/jschlyter/scoutnet2airkey/pkg/jwt"
)

const leeway = 60 * time.Second

// TokenManager manages Airkey API tokens via the OAuth2 client
// credentials flow, reusing tokens until they near expiry.
type TokenManager struct {
	tokenSource oauth2.TokenSource
}

// airkeyTokenSource fetches tokens through the client credentials flow
// and fills in a missing expiry from the access token's own claims.
type airkeyTokenSource struct {
	ctx    context.Context
	config *clientcredentials.Config
}

// Token implements the oauth2.TokenSource interface
func (a *airkeyTokenSource) Token() (*oauth2.Token, error) {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.TODO()
	}

	token, err := a.config.Token(ctx)
	if err != nil {
		return nil, errors.NewUnauthorized("failed to get token from Airkey", err)
	}

	// Some token endpoints omit expires_in; fall back to the exp claim
	// of the access token itself.
	if token.Expiry.IsZero() {
		claims, errParse := jwt.ParseUnverified(ctx, token.AccessToken, &jwt.ParseOptions{
			RequireExpiration: false,
			AllowBearerPrefix: false,
		})
		if errParse == nil && claims.ExpiresAt != nil {
			token.Expiry = claims.ExpiresAt.Add(-leeway)
		}
	} else {
		token.Expiry = token.Expiry.Add(-leeway)
	}

	return token, nil
}

// GetToken returns a valid Airkey access token
func (tm *TokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := tm.tokenSource.Token()
	if err != nil {
		return "", err
	}

	if !token.Valid() {
		return "", errors.NewUnauthorized("token is not valid")
	}

	slog.DebugContext(ctx, "Airkey token retrieved",
		"token_type", token.TokenType,
		"expires_at", token.Expiry,
	)

	return token.AccessToken, nil
}

// NewTokenManager creates a new TokenManager for the Airkey API.
func NewTokenManager(ctx context.Context, clientID, clientSecret, tokenURL string, scopes []string) (*TokenManager, error) {
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return nil, errors.NewValidation("Airkey client ID, client secret and token URL are required")
	}

	source := &airkeyTokenSource{
		ctx: ctx,
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		},
	}

	// Wrap with oauth2.ReuseTokenSource for automatic caching and renewal
	return &TokenManager{
		tokenSource: oauth2.ReuseTokenSource(nil, source),
	}, nil
}
