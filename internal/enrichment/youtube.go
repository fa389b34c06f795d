package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/listoapp/listo/internal/domain"
)

const (
	youTubeBaseURL  = "https://www.googleapis.com/youtube/v3"
	youTubeWatchURL = "https://www.youtube.com/watch?v="
)

// YouTube enriches videos from the YouTube Data API.
type YouTube struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewYouTube creates a YouTube plugin. A search costs 100 quota units, so
// calls are throttled harder than the other plugins.
func NewYouTube(apiKey string, httpClient *http.Client, logger *slog.Logger) *YouTube {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &YouTube{
		apiKey:     apiKey,
		baseURL:    youTubeBaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:     logger,
	}
}

// Name implements Plugin.
func (y *YouTube) Name() string { return "youtube" }

// Categories implements Plugin.
func (y *YouTube) Categories() []domain.Category {
	return []domain.Category{domain.CategoryYouTube}
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytSnippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelID    string   `json:"channelId"`
	ChannelTitle string   `json:"channelTitle"`
	PublishedAt  string   `json:"publishedAt"`
	Tags         []string `json:"tags"`
	Thumbnails   struct {
		Default ytThumbnail `json:"default"`
		Medium  ytThumbnail `json:"medium"`
		High    ytThumbnail `json:"high"`
	} `json:"thumbnails"`
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytVideosResponse struct {
	Items []struct {
		ID             string    `json:"id"`
		Snippet        ytSnippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Search implements Plugin.
func (y *YouTube) Search(ctx context.Context, query string, _ domain.Category) ([]SearchSuggestion, error) {
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"maxResults": {fmt.Sprint(suggestionLimit)},
		"q":          {query},
		"key":        {y.apiKey},
	}

	var resp ytSearchResponse
	if err := getJSON(ctx, y.httpClient, y.limiter, "YouTube", y.baseURL+"/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchSuggestion, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.Medium.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		out = append(out, SearchSuggestion{
			ID:        item.ID.VideoID,
			Title:     stripHTML(item.Snippet.Title),
			Subtitle:  stripHTML(item.Snippet.ChannelTitle),
			Thumbnail: thumb,
			Year:      yearOf(item.Snippet.PublishedAt),
		})
	}
	return out, nil
}

// Enrich implements Plugin.
func (y *YouTube) Enrich(ctx context.Context, id string, _ domain.Category) (*domain.Metadata, error) {
	params := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {id},
		"key":  {y.apiKey},
	}

	var resp ytVideosResponse
	if err := getJSON(ctx, y.httpClient, y.limiter, "YouTube", y.baseURL+"/videos?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", id)
	}
	video := resp.Items[0]
	sn := video.Snippet

	thumb := sn.Thumbnails.High.URL
	if thumb == "" {
		thumb = sn.Thumbnails.Medium.URL
	}

	views, _ := strconv.ParseInt(video.Statistics.ViewCount, 10, 64)
	likes, _ := strconv.ParseInt(video.Statistics.LikeCount, 10, 64)

	md := &domain.YouTubeMetadata{
		VideoID:     id,
		Channel:     sn.ChannelTitle,
		ChannelID:   sn.ChannelID,
		URL:         youTubeWatchURL + url.QueryEscape(id),
		PublishedAt: sn.PublishedAt,
		Duration:    video.ContentDetails.Duration,
		ViewCount:   views,
		LikeCount:   likes,
		Tags:        sn.Tags,
		BaseMetadata: domain.BaseMetadata{
			Year:         yearOf(sn.PublishedAt),
			Description:  sn.Description,
			ThumbnailURL: thumb,
		},
	}
	return domain.NewMetadata(md), nil
}
