package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/service"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "pullRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/recommendations",
		Summary:     "Pull recommendations",
		Description: "Returns the caller's recommendations with updated_at >= since, newest first, including soft-deleted ones",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handlePullRecommendations)

	huma.Register(s.api, huma.Operation{
		OperationID:  "pushRecommendations",
		Method:       http.MethodPost,
		Path:         "/api/recommendations/sync",
		Summary:      "Push recommendations",
		Description:  "Merges a batch of records with last-write-wins on updated_at. Each record is accepted or rejected independently.",
		Tags:         []string{"Sync"},
		Security:     []map[string][]string{{"bearer": {}}},
		Middlewares:  huma.Middlewares{s.rateLimit},
		MaxBodyBytes: UnlimitedPushBody,
	}, s.handlePushRecommendations)
}

// === DTOs ===

// PullRecommendationsInput contains parameters for a pull.
type PullRecommendationsInput struct {
	Since int64 `query:"since" minimum:"0" doc:"Unix seconds; 0 returns everything"`
}

// PullRecommendationsResponse is the body of a pull.
type PullRecommendationsResponse struct {
	Recommendations []RecommendationBody `json:"recommendations" doc:"Changed records"`
}

// PullRecommendationsOutput wraps the pull response for Huma.
type PullRecommendationsOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         PullRecommendationsResponse
}

// PushRecommendationsRequest is the body of a push.
type PushRecommendationsRequest struct {
	Recommendations []RecommendationBody `json:"recommendations" doc:"Dirty records, all in one batch"`
}

// PushRecommendationsInput wraps the push request for Huma.
type PushRecommendationsInput struct {
	Body PushRecommendationsRequest
}

// PushErrorResponse names a rejected record.
type PushErrorResponse struct {
	ID      string `json:"id" doc:"Record id"`
	Message string `json:"message" doc:"Why it was rejected"`
}

// PushRecommendationsResponse is the body of a push answer.
type PushRecommendationsResponse struct {
	Synced []string            `json:"synced" doc:"Ids the server accepted"`
	Errors []PushErrorResponse `json:"errors" doc:"Ids the server rejected, with reasons"`
}

// PushRecommendationsOutput wraps the push response for Huma.
type PushRecommendationsOutput struct {
	Body PushRecommendationsResponse
}

// === Handlers ===

func (s *Server) handlePullRecommendations(ctx context.Context, input *PullRecommendationsInput) (*PullRecommendationsOutput, error) {
	owner, err := GetOwnerID(ctx)
	if err != nil {
		return nil, err
	}

	changes, err := s.services.Sync.Changes(ctx, owner, input.Since)
	if err != nil {
		return nil, err
	}

	bodies := make([]RecommendationBody, 0, len(changes.Recommendations))
	for i := range changes.Recommendations {
		body, err := toRecommendationBody(&changes.Recommendations[i])
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to encode recommendations")
		}
		bodies = append(bodies, body)
	}

	return &PullRecommendationsOutput{
		CacheControl: CacheNoStore,
		Body:         PullRecommendationsResponse{Recommendations: bodies},
	}, nil
}

func (s *Server) handlePushRecommendations(ctx context.Context, input *PushRecommendationsInput) (*PushRecommendationsOutput, error) {
	owner, err := GetOwnerID(ctx)
	if err != nil {
		return nil, err
	}

	// Records that cannot even be decoded are rejected here; the rest go
	// to the merge, which rejects per record too.
	var decodeErrors []service.PushRejection
	recs := make([]*domain.Recommendation, 0, len(input.Body.Recommendations))
	for i := range input.Body.Recommendations {
		body := &input.Body.Recommendations[i]
		rec, err := fromRecommendationBody(body)
		if err != nil {
			decodeErrors = append(decodeErrors, service.PushRejection{ID: body.ID, Message: err.Error()})
			continue
		}
		recs = append(recs, rec)
	}

	result, err := s.services.Sync.Merge(ctx, owner, recs)
	if err != nil {
		return nil, err
	}

	resp := PushRecommendationsResponse{
		Synced: result.Synced,
		Errors: make([]PushErrorResponse, 0, len(decodeErrors)+len(result.Errors)),
	}
	if resp.Synced == nil {
		resp.Synced = []string{}
	}
	for _, rej := range append(decodeErrors, result.Errors...) {
		resp.Errors = append(resp.Errors, PushErrorResponse{ID: rej.ID, Message: rej.Message})
	}

	return &PushRecommendationsOutput{Body: resp}, nil
}
