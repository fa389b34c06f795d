package auth

import "time"

// AccessClaims is the payload of an owner token. v4.local tokens are
// encrypted, so clients cannot read or alter the owner id.
type AccessClaims struct {
	OwnerID string `json:"owner_id"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
