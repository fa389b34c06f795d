package api

import (
	"context"
	stdjson "encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/goccy/go-json"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/enrichment"
)

func (s *Server) registerEnrichmentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchEnrichment",
		Method:      http.MethodGet,
		Path:        "/api/enrichment/search",
		Summary:     "Search metadata",
		Description: "Returns up to five suggestions from the category's metadata source. Categories without a source return an empty list.",
		Tags:        []string{"Enrichment"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handleSearchEnrichment)

	huma.Register(s.api, huma.Operation{
		OperationID: "enrichItem",
		Method:      http.MethodGet,
		Path:        "/api/enrichment/enrich",
		Summary:     "Fetch metadata",
		Description: "Fetches full metadata for a suggestion id. Failures are reported in the body, not as an HTTP error.",
		Tags:        []string{"Enrichment"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handleEnrichItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEnrichmentCategories",
		Method:      http.MethodGet,
		Path:        "/api/enrichment/categories",
		Summary:     "Enrichable categories",
		Description: "Lists the categories that have a metadata source on this server",
		Tags:        []string{"Enrichment"},
	}, s.handleListEnrichmentCategories)
}

// === DTOs ===

// SearchEnrichmentInput contains parameters for a metadata search.
type SearchEnrichmentInput struct {
	Query    string `query:"query" required:"true" minLength:"1" maxLength:"200" doc:"Search text"`
	Category string `query:"category" required:"true" doc:"Recommendation category"`
}

// SearchEnrichmentResponse lists suggestions.
type SearchEnrichmentResponse struct {
	Suggestions []enrichment.SearchSuggestion `json:"suggestions" doc:"At most five candidates"`
}

// SearchEnrichmentOutput wraps the search response for Huma.
type SearchEnrichmentOutput struct {
	Body SearchEnrichmentResponse
}

// EnrichItemInput contains parameters for fetching metadata.
type EnrichItemInput struct {
	ID       string `query:"id" required:"true" minLength:"1" maxLength:"200" doc:"Suggestion id"`
	Category string `query:"category" required:"true" doc:"Recommendation category"`
}

// EnrichItemResponse is the outcome of an enrichment.
type EnrichItemResponse struct {
	Success  bool               `json:"success" doc:"Whether metadata was found"`
	Metadata stdjson.RawMessage `json:"metadata,omitempty" doc:"Metadata, tagged by its type field"`
	Error    string             `json:"error,omitempty" doc:"Why enrichment failed"`
}

// EnrichItemOutput wraps the enrich response for Huma.
type EnrichItemOutput struct {
	Body EnrichItemResponse
}

// EnrichmentCategoriesOutput lists enrichable categories.
type EnrichmentCategoriesOutput struct {
	Body struct {
		Categories []string `json:"categories" doc:"Categories with a metadata source"`
	}
}

// === Handlers ===

func (s *Server) handleSearchEnrichment(ctx context.Context, input *SearchEnrichmentInput) (*SearchEnrichmentOutput, error) {
	if _, err := GetOwnerID(ctx); err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	suggestions := s.services.Enrichment.Search(ctx, input.Query, category)
	return &SearchEnrichmentOutput{Body: SearchEnrichmentResponse{Suggestions: suggestions}}, nil
}

func (s *Server) handleEnrichItem(ctx context.Context, input *EnrichItemInput) (*EnrichItemOutput, error) {
	if _, err := GetOwnerID(ctx); err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	res := s.services.Enrichment.Enrich(ctx, input.ID, category)
	body := EnrichItemResponse{Success: res.Success, Error: res.Error}
	if res.Metadata != nil {
		raw, err := json.Marshal(res.Metadata)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to encode metadata")
		}
		body.Metadata = raw
	}
	return &EnrichItemOutput{Body: body}, nil
}

func (s *Server) handleListEnrichmentCategories(_ context.Context, _ *struct{}) (*EnrichmentCategoriesOutput, error) {
	out := &EnrichmentCategoriesOutput{}
	out.Body.Categories = make([]string, 0)
	for _, c := range s.services.Enrichment.Categories() {
		out.Body.Categories = append(out.Body.Categories, string(c))
	}
	return out, nil
}
