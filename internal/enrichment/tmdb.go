package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/listoapp/listo/internal/domain"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/w500"
	omdbBaseURL      = "https://www.omdbapi.com/"
)

// TMDB enriches movies and shows from The Movie Database, with an optional
// Rotten Tomatoes score from OMDb.
type TMDB struct {
	apiKey     string
	omdbAPIKey string
	baseURL    string
	omdbURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewTMDB creates a TMDB plugin. apiKey is either a v3 key or a v4 read
// access token (a JWT); omdbAPIKey may be empty.
func NewTMDB(apiKey, omdbAPIKey string, httpClient *http.Client, logger *slog.Logger) *TMDB {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &TMDB{
		apiKey:     apiKey,
		omdbAPIKey: omdbAPIKey,
		baseURL:    tmdbBaseURL,
		omdbURL:    omdbBaseURL,
		httpClient: httpClient,
		// TMDB allows roughly 40 requests per second; stay well below.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		logger:  logger,
	}
}

// Name implements Plugin.
func (t *TMDB) Name() string { return "tmdb" }

// Categories implements Plugin.
func (t *TMDB) Categories() []domain.Category {
	return []domain.Category{domain.CategoryMovie, domain.CategoryShow}
}

type tmdbSearchResponse struct {
	Results []tmdbItem `json:"results"`
}

type tmdbItem struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Name         string      `json:"name"`
	ReleaseDate  string      `json:"release_date"`
	FirstAirDate string      `json:"first_air_date"`
	PosterPath   string      `json:"poster_path"`
	Overview     string      `json:"overview"`
	VoteAverage  float64     `json:"vote_average"`
	Runtime      int         `json:"runtime"`
	EpisodeRun   []int       `json:"episode_run_time"`
	Genres       []tmdbGenre `json:"genres"`
	ExternalIDs  struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

type tmdbGenre struct {
	Name string `json:"name"`
}

func (i *tmdbItem) title() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Name
}

func (i *tmdbItem) date() string {
	if i.ReleaseDate != "" {
		return i.ReleaseDate
	}
	return i.FirstAirDate
}

// isBearerToken reports whether the key is a v4 read access token.
func (t *TMDB) isBearerToken() bool {
	return strings.HasPrefix(t.apiKey, "eyJ")
}

func (t *TMDB) get(ctx context.Context, path string, params url.Values, out any) error {
	headers := http.Header{}
	if t.isBearerToken() {
		headers.Set("Authorization", "Bearer "+t.apiKey)
	} else {
		params.Set("api_key", t.apiKey)
	}
	return getJSON(ctx, t.httpClient, t.limiter, "TMDB", t.baseURL+path+"?"+params.Encode(), headers, out)
}

// Search implements Plugin.
func (t *TMDB) Search(ctx context.Context, query string, category domain.Category) ([]SearchSuggestion, error) {
	endpoint := "/search/movie"
	if category == domain.CategoryShow {
		endpoint = "/search/tv"
	}

	var resp tmdbSearchResponse
	if err := t.get(ctx, endpoint, url.Values{"query": {query}}, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchSuggestion, 0, min(len(resp.Results), suggestionLimit))
	for i := range resp.Results {
		if len(out) == suggestionLimit {
			break
		}
		item := &resp.Results[i]
		s := SearchSuggestion{
			ID:       strconv.Itoa(item.ID),
			Title:    item.title(),
			Subtitle: item.date(),
			Year:     yearOf(item.date()),
		}
		if item.PosterPath != "" {
			s.Thumbnail = tmdbImageBaseURL + item.PosterPath
		}
		out = append(out, s)
	}
	return out, nil
}

// Enrich implements Plugin.
func (t *TMDB) Enrich(ctx context.Context, id string, category domain.Category) (*domain.Metadata, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf("invalid TMDB id %q", id)
	}

	endpoint := "/movie/" + id
	mdType := domain.MetadataMovie
	if category == domain.CategoryShow {
		endpoint = "/tv/" + id
		mdType = domain.MetadataShow
	}

	var item tmdbItem
	if err := t.get(ctx, endpoint, url.Values{"append_to_response": {"external_ids"}}, &item); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("TMDB %s %s not found", category, id)
		}
		return nil, err
	}

	md := &domain.ScreenMetadata{
		Type:       mdType,
		TMDBID:     item.ID,
		IMDBRating: item.VoteAverage,
		BaseMetadata: domain.BaseMetadata{
			Year:     yearOf(item.date()),
			Overview: item.Overview,
			Runtime:  item.Runtime,
		},
	}
	if md.Runtime == 0 && len(item.EpisodeRun) > 0 {
		md.Runtime = item.EpisodeRun[0]
	}
	if item.PosterPath != "" {
		md.PosterURL = tmdbImageBaseURL + item.PosterPath
	}
	for _, g := range item.Genres {
		md.Genres = append(md.Genres, g.Name)
	}

	if t.omdbAPIKey != "" && item.ExternalIDs.IMDBID != "" {
		score, err := t.rottenTomatoes(ctx, item.ExternalIDs.IMDBID)
		if err != nil {
			t.logger.Debug("OMDb lookup failed", "imdb_id", item.ExternalIDs.IMDBID, "error", err)
		}
		md.RTScore = score
	}

	return domain.NewMetadata(md), nil
}

type omdbResponse struct {
	Ratings []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

// rottenTomatoes returns the Rotten Tomatoes percentage for an IMDb id, or
// 0 when OMDb has none.
func (t *TMDB) rottenTomatoes(ctx context.Context, imdbID string) (int, error) {
	params := url.Values{"apikey": {t.omdbAPIKey}, "i": {imdbID}}
	var resp omdbResponse
	if err := getJSON(ctx, t.httpClient, nil, "OMDb", t.omdbURL+"?"+params.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	for _, r := range resp.Ratings {
		if r.Source != "Rotten Tomatoes" {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(r.Value), "%"))
		if err != nil {
			return 0, fmt.Errorf("parse rotten tomatoes score %q: %w", r.Value, err)
		}
		return pct, nil
	}
	return 0, nil
}
