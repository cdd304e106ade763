// Package jwt extracts claims from access tokens without verifying them.
// Signature verification belongs to the issuing service; this package only
// introspects tokens the process already trusts, e.g. to learn their expiry.
package jwt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// Claims represents the parsed JWT claims with commonly used fields
type Claims struct {
	Subject   string        `json:"sub"`
	ExpiresAt *time.Time    `json:"exp,omitempty"`
	IssuedAt  *time.Time    `json:"iat,omitempty"`
	Issuer    string        `json:"iss,omitempty"`
	Scope     string        `json:"scope,omitempty"`
	Raw       jwt.MapClaims `json:"-"` // Raw claims for additional fields
}

// ParseOptions configures JWT parsing behavior
type ParseOptions struct {
	// RequireExpiration validates that the token has an 'exp' claim and is not expired
	RequireExpiration bool
	// AllowBearerPrefix allows tokens with "Bearer " prefix
	AllowBearerPrefix bool
}

// DefaultParseOptions returns sensible default options
func DefaultParseOptions() *ParseOptions {
	return &ParseOptions{
		RequireExpiration: true,
		AllowBearerPrefix: true,
	}
}

// ParseUnverified parses a JWT token without signature verification and
// returns the claims.
func ParseUnverified(ctx context.Context, tokenString string, opts *ParseOptions) (*Claims, error) {
	if opts == nil {
		opts = DefaultParseOptions()
	}

	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.NewValidation("token is required")
	}

	// Remove optional Bearer prefix (case-insensitive) and trim
	cleanToken := strings.TrimSpace(tokenString)
	if opts.AllowBearerPrefix {
		parts := strings.Fields(tokenString)
		if len(parts) > 1 && strings.EqualFold(parts[0], "Bearer") {
			cleanToken = strings.Join(parts[1:], " ")
		}
	}

	token, _, err := new(jwt.Parser).ParseUnverified(cleanToken, jwt.MapClaims{})
	if err != nil {
		return nil, errors.NewValidation("failed to parse JWT token", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewValidation("invalid token claims")
	}

	claims, err := mapClaimsToClaims(mapClaims)
	if err != nil {
		return nil, err
	}

	if opts.RequireExpiration {
		if err := validateExpiration(claims); err != nil {
			return nil, err
		}
	}

	slog.DebugContext(ctx, "JWT parsed successfully",
		"subject", claims.Subject,
		"expires_at", claims.ExpiresAt,
		"scope", claims.Scope)

	return claims, nil
}

// mapClaimsToClaims converts jwt.MapClaims to our Claims struct
func mapClaimsToClaims(mapClaims jwt.MapClaims) (*Claims, error) {
	claims := &Claims{
		Raw: mapClaims,
	}

	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}

	if exp, ok := mapClaims["exp"]; ok {
		expTime, err := parseTimeFromClaim(exp)
		if err != nil {
			return nil, errors.NewValidation("invalid 'exp' claim format", err)
		}
		claims.ExpiresAt = &expTime
	}

	if iat, ok := mapClaims["iat"]; ok {
		iatTime, err := parseTimeFromClaim(iat)
		if err != nil {
			return nil, errors.NewValidation("invalid 'iat' claim format", err)
		}
		claims.IssuedAt = &iatTime
	}

	if iss, ok := mapClaims["iss"].(string); ok {
		claims.Issuer = iss
	}

	if scope, ok := mapClaims["scope"].(string); ok {
		claims.Scope = scope
	}

	return claims, nil
}

// parseTimeFromClaim handles different numeric types for time claims
func parseTimeFromClaim(claim any) (time.Time, error) {
	switch v := claim.(type) {
	case float64:
		return time.Unix(int64(v), 0), nil
	case int64:
		return time.Unix(v, 0), nil
	case int:
		return time.Unix(int64(v), 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time claim type: %T", claim)
	}
}

// validateExpiration checks if the token is expired
func validateExpiration(claims *Claims) error {
	if claims.ExpiresAt == nil {
		return errors.NewValidation("missing 'exp' claim in token")
	}

	if time.Now().After(*claims.ExpiresAt) {
		return errors.NewValidation(fmt.Sprintf("token has expired at %v", *claims.ExpiresAt))
	}

	return nil
}
