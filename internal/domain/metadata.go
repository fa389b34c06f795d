package domain

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// MetadataType discriminates the metadata union.
type MetadataType string

// Known metadata variants.
const (
	MetadataMovie      MetadataType = "movie"
	MetadataShow       MetadataType = "show"
	MetadataYouTube    MetadataType = "youtube"
	MetadataBook       MetadataType = "book"
	MetadataMusic      MetadataType = "music"
	MetadataRestaurant MetadataType = "restaurant"
)

// BaseMetadata holds the fields every variant may carry.
type BaseMetadata struct {
	Year           int      `json:"year,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Overview       string   `json:"overview,omitempty"`
	Description    string   `json:"description,omitempty"`
	Runtime        int      `json:"runtime,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	PosterURL      string   `json:"poster_url,omitempty"`
	ThumbnailURL   string   `json:"thumbnail_url,omitempty"`
	CoverURL       string   `json:"cover_url,omitempty"`
	AlbumArt       string   `json:"album_art,omitempty"`
	SpotifyURL     string   `json:"spotify_url,omitempty"`
	YouTubeURL     string   `json:"youtube_url,omitempty"`
	GoogleMapsLink string   `json:"google_maps_link,omitempty"`
}

// ScreenMetadata describes a movie or a show; Type tells which.
type ScreenMetadata struct {
	Type MetadataType `json:"type"`
	BaseMetadata
	TMDBID         int      `json:"tmdb_id,omitempty"`
	IMDBRating     float64  `json:"imdb_rating,omitempty"`
	RTScore        int      `json:"rt_score,omitempty"`
	StreamingLinks []string `json:"streaming_links,omitempty"`
}

// YouTubeMetadata describes a video.
type YouTubeMetadata struct {
	Type MetadataType `json:"type"`
	BaseMetadata
	VideoID     string   `json:"video_id,omitempty"`
	Channel     string   `json:"channel,omitempty"`
	ChannelID   string   `json:"channel_id,omitempty"`
	URL         string   `json:"url,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	ViewCount   int64    `json:"view_count,omitempty"`
	LikeCount   int64    `json:"like_count,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// BookMetadata describes a book or graphic novel.
type BookMetadata struct {
	Type MetadataType `json:"type"`
	BaseMetadata
	ISBN            string `json:"isbn,omitempty"`
	Author          string `json:"author,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	GoodreadsLink   string `json:"goodreads_link,omitempty"`
	GoogleBooksLink string `json:"google_books_link,omitempty"`
}

// MusicMetadata describes an artist, song, genre or podcast.
type MusicMetadata struct {
	Type MetadataType `json:"type"`
	BaseMetadata
	Artist         string `json:"artist,omitempty"`
	SpotifyLink    string `json:"spotify_link,omitempty"`
	AppleMusicLink string `json:"apple_music_link,omitempty"`
	FeedURL        string `json:"feed_url,omitempty"`
}

// RestaurantMetadata describes a place to eat.
type RestaurantMetadata struct {
	Type MetadataType `json:"type"`
	BaseMetadata
	Location string `json:"location,omitempty"`
	YelpLink string `json:"yelp_link,omitempty"`
	Cuisine  string `json:"cuisine,omitempty"`
}

// MetadataValue is implemented by every metadata variant.
type MetadataValue interface {
	MetadataType() MetadataType
	base() *BaseMetadata
}

// MetadataType implements MetadataValue.
func (m *ScreenMetadata) MetadataType() MetadataType { return m.Type }

// MetadataType implements MetadataValue.
func (m *YouTubeMetadata) MetadataType() MetadataType { return MetadataYouTube }

// MetadataType implements MetadataValue.
func (m *BookMetadata) MetadataType() MetadataType { return MetadataBook }

// MetadataType implements MetadataValue.
func (m *MusicMetadata) MetadataType() MetadataType { return MetadataMusic }

// MetadataType implements MetadataValue.
func (m *RestaurantMetadata) MetadataType() MetadataType { return MetadataRestaurant }

func (m *ScreenMetadata) base() *BaseMetadata     { return &m.BaseMetadata }
func (m *YouTubeMetadata) base() *BaseMetadata    { return &m.BaseMetadata }
func (m *BookMetadata) base() *BaseMetadata       { return &m.BaseMetadata }
func (m *MusicMetadata) base() *BaseMetadata      { return &m.BaseMetadata }
func (m *RestaurantMetadata) base() *BaseMetadata { return &m.BaseMetadata }

// Metadata is the category-specific payload of a recommendation, a tagged
// union keyed by the "type" field. Payloads with an unknown type are kept
// verbatim so they survive a round trip through this process.
type Metadata struct {
	value MetadataValue
	raw   json.RawMessage
}

// NewMetadata wraps a variant. The variant's Type field is normalized so the
// discriminator always matches the Go type.
func NewMetadata(v MetadataValue) *Metadata {
	switch m := v.(type) {
	case *ScreenMetadata:
		if m.Type != MetadataShow {
			m.Type = MetadataMovie
		}
	case *YouTubeMetadata:
		m.Type = MetadataYouTube
	case *BookMetadata:
		m.Type = MetadataBook
	case *MusicMetadata:
		m.Type = MetadataMusic
	case *RestaurantMetadata:
		m.Type = MetadataRestaurant
	}
	return &Metadata{value: v}
}

// Type returns the discriminator, including unknown ones.
func (m *Metadata) Type() MetadataType {
	if m == nil {
		return ""
	}
	if m.value != nil {
		return m.value.MetadataType()
	}
	var envelope struct {
		Type MetadataType `json:"type"`
	}
	_ = json.Unmarshal(m.raw, &envelope)
	return envelope.Type
}

// Value returns the decoded variant, or nil for unknown types.
func (m *Metadata) Value() MetadataValue {
	if m == nil {
		return nil
	}
	return m.value
}

// Base returns the shared fields of a known variant, or nil.
func (m *Metadata) Base() *BaseMetadata {
	if m == nil || m.value == nil {
		return nil
	}
	return m.value.base()
}

// Known reports whether the payload decoded into a known variant.
func (m *Metadata) Known() bool {
	return m != nil && m.value != nil
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.value != nil {
		return json.Marshal(m.value)
	}
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = Metadata{}
		return nil
	}

	var envelope struct {
		Type MetadataType `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	var v MetadataValue
	switch envelope.Type {
	case MetadataMovie, MetadataShow:
		v = &ScreenMetadata{}
	case MetadataYouTube:
		v = &YouTubeMetadata{}
	case MetadataBook:
		v = &BookMetadata{}
	case MetadataMusic:
		v = &MusicMetadata{}
	case MetadataRestaurant:
		v = &RestaurantMetadata{}
	default:
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		*m = Metadata{raw: raw}
		return nil
	}

	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("decode %s metadata: %w", envelope.Type, err)
	}
	*m = Metadata{value: v}
	return nil
}

// MetadataTypeFor returns the variant a plugin should produce for a
// category, or "" when the category has no structured metadata.
func MetadataTypeFor(c Category) MetadataType {
	switch c {
	case CategoryMovie:
		return MetadataMovie
	case CategoryShow:
		return MetadataShow
	case CategoryYouTube:
		return MetadataYouTube
	case CategoryBook, CategoryGraphicNovel:
		return MetadataBook
	case CategoryArtist, CategorySong, CategoryGenre, CategoryPodcast:
		return MetadataMusic
	case CategoryRestaurant:
		return MetadataRestaurant
	default:
		return ""
	}
}
