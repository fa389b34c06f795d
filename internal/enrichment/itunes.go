package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/listoapp/listo/internal/domain"
)

const itunesBaseURL = "https://itunes.apple.com"

// artworkSizePattern matches the size segment of iTunes artwork URLs, e.g.
// "/100x100bb.jpg".
var artworkSizePattern = regexp.MustCompile(`/\d+x\d+bb\.`)

// ITunes enriches podcasts from the iTunes Search API. No key is required.
type ITunes struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewITunes creates an iTunes plugin.
// Rate limited to 20 requests per minute as recommended by Apple.
func NewITunes(httpClient *http.Client, logger *slog.Logger) *ITunes {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &ITunes{
		baseURL:    itunesBaseURL,
		httpClient: httpClient,
		// 20 requests per minute = 1 request per 3 seconds, burst of 5
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		logger:  logger,
	}
}

// Name implements Plugin.
func (c *ITunes) Name() string { return "itunes" }

// Categories implements Plugin.
func (c *ITunes) Categories() []domain.Category {
	return []domain.Category{domain.CategoryPodcast}
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	WrapperType       string   `json:"wrapperType"`
	Kind              string   `json:"kind"`
	CollectionID      int64    `json:"collectionId"`
	CollectionName    string   `json:"collectionName"`
	ArtistName        string   `json:"artistName"`
	CollectionViewURL string   `json:"collectionViewUrl"`
	FeedURL           string   `json:"feedUrl"`
	ArtworkURL100     string   `json:"artworkUrl100"`
	ArtworkURL600     string   `json:"artworkUrl600"`
	ReleaseDate       string   `json:"releaseDate"`
	Genres            []string `json:"genres"`
	PrimaryGenreName  string   `json:"primaryGenreName"`
}

func (r *itunesResult) artwork() string {
	if r.ArtworkURL600 != "" {
		return r.ArtworkURL600
	}
	return largeArtwork(r.ArtworkURL100)
}

// largeArtwork rewrites an artwork URL to its 600px variant.
func largeArtwork(u string) string {
	if u == "" {
		return ""
	}
	return artworkSizePattern.ReplaceAllString(u, "/600x600bb.")
}

func (c *ITunes) query(ctx context.Context, path string, params url.Values) ([]itunesResult, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()
	c.logger.Debug("querying iTunes", "url", reqURL)

	var resp itunesResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, "iTunes", reqURL, nil, &resp); err != nil {
		return nil, err
	}

	// Only podcasts; lookup also returns episodes when asked.
	results := make([]itunesResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Kind != "" && r.Kind != "podcast" {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// Search implements Plugin.
func (c *ITunes) Search(ctx context.Context, query string, _ domain.Category) ([]SearchSuggestion, error) {
	results, err := c.query(ctx, "/search", url.Values{
		"term":   {query},
		"media":  {"podcast"},
		"entity": {"podcast"},
		"limit":  {strconv.Itoa(suggestionLimit)},
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchSuggestion, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, SearchSuggestion{
			ID:        strconv.FormatInt(r.CollectionID, 10),
			Title:     r.CollectionName,
			Subtitle:  r.ArtistName,
			Thumbnail: r.ArtworkURL100,
			Year:      yearOf(r.ReleaseDate),
		})
	}
	return out, nil
}

// Enrich implements Plugin.
func (c *ITunes) Enrich(ctx context.Context, id string, _ domain.Category) (*domain.Metadata, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid iTunes id %q", id)
	}

	results, err := c.query(ctx, "/lookup", url.Values{"id": {id}, "entity": {"podcast"}})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("podcast %s not found", id)
	}
	r := &results[0]

	genres := r.Genres
	if len(genres) == 0 && r.PrimaryGenreName != "" {
		genres = []string{r.PrimaryGenreName}
	}

	md := &domain.MusicMetadata{
		Artist:         r.ArtistName,
		AppleMusicLink: r.CollectionViewURL,
		FeedURL:        r.FeedURL,
		BaseMetadata: domain.BaseMetadata{
			Year:     yearOf(r.ReleaseDate),
			Genres:   genres,
			AlbumArt: r.artwork(),
		},
	}
	return domain.NewMetadata(md), nil
}
