package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	domainerrors "github.com/listoapp/listo/internal/errors"
)

const (
	tokenIssuer   = "listo-server"
	tokenAudience = "listo-client"

	maxOwnerIDLength = 128
)

// TokenService issues and verifies PASETO v4.local access tokens. A token
// names exactly one owner; the API trusts it and nothing else for identity.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
	bootstrapSecret     string
	now                 func() time.Time
}

// NewTokenService creates a token service from a 32 byte key. An empty
// bootstrapSecret disables token issuance over the API.
func NewTokenService(key []byte, accessDuration time.Duration, bootstrapSecret string) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		accessTokenDuration: accessDuration,
		bootstrapSecret:     bootstrapSecret,
		now:                 time.Now,
	}, nil
}

// IssueToken creates an access token for owner.
func (s *TokenService) IssueToken(owner string) (string, *AccessClaims, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" || len(owner) > maxOwnerIDLength {
		return "", nil, domainerrors.Validationf("owner id must be 1-%d characters", maxOwnerIDLength)
	}

	now := s.now()
	claims := &AccessClaims{
		OwnerID:    owner,
		Issuer:     tokenIssuer,
		Subject:    owner,
		Audience:   tokenAudience,
		IssuedAt:   now,
		NotBefore:  now,
		Expiration: now.Add(s.accessTokenDuration),
		TokenID:    uuid.NewString(),
	}

	token := paseto.NewToken()
	token.SetIssuer(claims.Issuer)
	token.SetSubject(claims.Subject)
	token.SetAudience(claims.Audience)
	token.SetIssuedAt(claims.IssuedAt)
	token.SetNotBefore(claims.NotBefore)
	token.SetExpiration(claims.Expiration)
	token.SetJti(claims.TokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("owner_id", owner)

	return token.V4Encrypt(s.symmetricKey, nil), claims, nil
}

// VerifyAccessToken decrypts and checks a token. Expired tokens yield a
// TOKEN_EXPIRED error, anything else unparseable UNAUTHORIZED.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, domainerrors.Unauthorized("invalid token claims").WithCause(err)
	}

	now := s.now()
	if !claims.Expiration.IsZero() && now.After(claims.Expiration) {
		return nil, domainerrors.TokenExpired("token expired")
	}
	if now.Before(claims.NotBefore) {
		return nil, domainerrors.Unauthorized("token not yet valid")
	}
	if claims.OwnerID == "" {
		return nil, domainerrors.Unauthorized("token has no owner")
	}

	return &claims, nil
}

// BootstrapEnabled reports whether tokens may be issued over the API.
func (s *TokenService) BootstrapEnabled() bool {
	return s.bootstrapSecret != ""
}

// CheckBootstrapSecret compares secret to the configured one in constant time.
func (s *TokenService) CheckBootstrapSecret(secret string) bool {
	if !s.BootstrapEnabled() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.bootstrapSecret)) == 1
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
