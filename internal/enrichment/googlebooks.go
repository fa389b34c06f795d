package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/listoapp/listo/internal/domain"
)

const googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooks enriches books and graphic novels from the Google Books API.
// No key is required.
type GoogleBooks struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewGoogleBooks creates a Google Books plugin.
func NewGoogleBooks(httpClient *http.Client, logger *slog.Logger) *GoogleBooks {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &GoogleBooks{
		baseURL:    googleBooksBaseURL,
		httpClient: httpClient,
		// Keyless quota is shared per IP; 1 request per second, burst of 5.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  logger,
	}
}

// Name implements Plugin.
func (g *GoogleBooks) Name() string { return "googlebooks" }

// Categories implements Plugin.
func (g *GoogleBooks) Categories() []domain.Category {
	return []domain.Category{domain.CategoryBook, domain.CategoryGraphicNovel}
}

type volumesResponse struct {
	Items []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	PageCount           int      `json:"pageCount"`
	Categories          []string `json:"categories"`
	AverageRating       float64  `json:"averageRating"`
	PreviewLink         string   `json:"previewLink"`
	InfoLink            string   `json:"infoLink"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

func (v *volumeInfo) thumbnail() string {
	link := v.ImageLinks.Thumbnail
	if link == "" {
		link = v.ImageLinks.SmallThumbnail
	}
	// Google still hands out http links.
	return strings.Replace(link, "http://", "https://", 1)
}

func (v *volumeInfo) isbn() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// Search implements Plugin.
func (g *GoogleBooks) Search(ctx context.Context, query string, _ domain.Category) ([]SearchSuggestion, error) {
	params := url.Values{
		"q":          {query},
		"maxResults": {fmt.Sprint(suggestionLimit)},
		"printType":  {"books"},
	}

	var resp volumesResponse
	if err := getJSON(ctx, g.httpClient, g.limiter, "Google Books", g.baseURL+"/volumes?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchSuggestion, 0, len(resp.Items))
	for i := range resp.Items {
		info := &resp.Items[i].VolumeInfo
		out = append(out, SearchSuggestion{
			ID:        resp.Items[i].ID,
			Title:     info.Title,
			Subtitle:  truncate(strings.Join(info.Authors, ", "), 80),
			Thumbnail: info.thumbnail(),
			Year:      yearOf(info.PublishedDate),
		})
	}
	return out, nil
}

// Enrich implements Plugin.
func (g *GoogleBooks) Enrich(ctx context.Context, id string, _ domain.Category) (*domain.Metadata, error) {
	var vol volume
	if err := getJSON(ctx, g.httpClient, g.limiter, "Google Books", g.baseURL+"/volumes/"+url.PathEscape(id), nil, &vol); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("book %s not found", id)
		}
		return nil, err
	}
	info := &vol.VolumeInfo

	link := info.PreviewLink
	if link == "" {
		link = info.InfoLink
	}

	md := &domain.BookMetadata{
		ISBN:            info.isbn(),
		Author:          strings.Join(info.Authors, ", "),
		Publisher:       info.Publisher,
		PageCount:       info.PageCount,
		GoogleBooksLink: link,
		BaseMetadata: domain.BaseMetadata{
			Year:         yearOf(info.PublishedDate),
			Genres:       info.Categories,
			Description:  htmlToMarkdown(info.Description),
			Rating:       info.AverageRating,
			ThumbnailURL: info.thumbnail(),
		},
	}
	return domain.NewMetadata(md), nil
}
