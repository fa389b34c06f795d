package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listoapp/listo/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "issueToken",
		Method:      http.MethodPost,
		Path:        "/api/auth/token",
		Summary:     "Issue access token",
		Description: "Issues an access token for an owner id. Only available when the server runs with a bootstrap secret.",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handleIssueToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentOwner",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Current owner",
		Description: "Returns the identity carried by the bearer token and how many records the server holds for it",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentOwner)
}

// === DTOs ===

// IssueTokenRequest is the body for issuing a token.
type IssueTokenRequest struct {
	OwnerID string `json:"owner_id" minLength:"1" maxLength:"128" doc:"Owner the token is for"`
	Secret  string `json:"secret" minLength:"1" doc:"Server bootstrap secret"`
}

// IssueTokenInput wraps the issue token request for Huma.
type IssueTokenInput struct {
	Body IssueTokenRequest
}

// TokenResponse contains a freshly issued token.
type TokenResponse struct {
	AccessToken string `json:"access_token" doc:"PASETO v4.local token"`
	TokenType   string `json:"token_type" doc:"Always Bearer"`
	ExpiresAt   int64  `json:"expires_at" doc:"Unix seconds"`
	OwnerID     string `json:"owner_id" doc:"Owner the token is for"`
}

// TokenOutput wraps the token response for Huma.
type TokenOutput struct {
	Body TokenResponse
}

// CurrentOwnerResponse describes the authenticated caller.
type CurrentOwnerResponse struct {
	OwnerID         string `json:"owner_id" doc:"Owner id"`
	TokenID         string `json:"token_id,omitempty" doc:"Token id (jti)"`
	ExpiresAt       int64  `json:"expires_at,omitempty" doc:"Unix seconds"`
	Recommendations int    `json:"recommendations" doc:"Records stored for this owner, deleted included"`
}

// CurrentOwnerOutput wraps the current owner response for Huma.
type CurrentOwnerOutput struct {
	Body CurrentOwnerResponse
}

// === Handlers ===

func (s *Server) handleIssueToken(_ context.Context, input *IssueTokenInput) (*TokenOutput, error) {
	tokens := s.services.Tokens
	if tokens == nil || !tokens.BootstrapEnabled() {
		return nil, domainerrors.Forbidden("token issuance is disabled on this server")
	}
	if !tokens.CheckBootstrapSecret(input.Body.Secret) {
		s.logger.Warn("token request with wrong bootstrap secret", "owner_id", input.Body.OwnerID)
		return nil, domainerrors.Unauthorized("invalid bootstrap secret")
	}

	token, claims, err := tokens.IssueToken(input.Body.OwnerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("access token issued", "owner_id", claims.OwnerID, "token_id", claims.TokenID)

	return &TokenOutput{
		Body: TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   claims.Expiration.Unix(),
			OwnerID:     claims.OwnerID,
		},
	}, nil
}

func (s *Server) handleGetCurrentOwner(ctx context.Context, _ *struct{}) (*CurrentOwnerOutput, error) {
	owner, err := GetOwnerID(ctx)
	if err != nil {
		return nil, err
	}

	resp := CurrentOwnerResponse{OwnerID: owner}
	if claims := getClaims(ctx); claims != nil {
		resp.TokenID = claims.TokenID
		resp.ExpiresAt = claims.Expiration.Unix()
	}
	if s.services.Sync != nil {
		n, err := s.services.Sync.Count(ctx, owner)
		if err != nil {
			return nil, err
		}
		resp.Recommendations = n
	}
	return &CurrentOwnerOutput{Body: resp}, nil
}
