package domain

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_DecodesKnownVariant(t *testing.T) {
	payload := `{"type":"movie","tmdb_id":438631,"year":2021,"genres":["Science Fiction"],"imdb_rating":7.8}`

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	require.True(t, m.Known())
	assert.Equal(t, MetadataMovie, m.Type())

	screen, ok := m.Value().(*ScreenMetadata)
	require.True(t, ok)
	assert.Equal(t, 438631, screen.TMDBID)
	assert.Equal(t, 2021, m.Base().Year)
	assert.Equal(t, []string{"Science Fiction"}, m.Base().Genres)
}

func TestMetadata_ShowKeepsDiscriminator(t *testing.T) {
	m := NewMetadata(&ScreenMetadata{Type: MetadataShow, TMDBID: 1399})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"show"`)
}

func TestMetadata_NewMetadataNormalizesType(t *testing.T) {
	m := NewMetadata(&BookMetadata{Type: "garbage", ISBN: "9780441172719"})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"book"`)
}

func TestMetadata_UnknownTypeRoundTripsVerbatim(t *testing.T) {
	payload := `{"type":"board-game","players":"2-4","bgg_id":13}`

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	assert.False(t, m.Known())
	assert.Equal(t, MetadataType("board-game"), m.Type())
	assert.Nil(t, m.Base())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(out))
}

func TestMetadata_NullInsideRecommendation(t *testing.T) {
	var r Recommendation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"rec-1","title":"x","metadata":null}`), &r))
	assert.Nil(t, r.Metadata)
}

func TestMetadata_RecommendationRoundTrip(t *testing.T) {
	rating := 4
	r := Recommendation{
		Syncable: Syncable{ID: "rec-1", CreatedAt: 10, UpdatedAt: 20},
		OwnerID:  "u1",
		Category: CategoryYouTube,
		Title:    "Talk",
		Metadata: NewMetadata(&YouTubeMetadata{VideoID: "abc", ViewCount: 12}),
		Rating:   &rating,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":"u1"`)

	var back Recommendation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestMetadataTypeFor(t *testing.T) {
	assert.Equal(t, MetadataBook, MetadataTypeFor(CategoryGraphicNovel))
	assert.Equal(t, MetadataMusic, MetadataTypeFor(CategoryPodcast))
	assert.Equal(t, MetadataShow, MetadataTypeFor(CategoryShow))
	assert.Equal(t, MetadataType(""), MetadataTypeFor(CategoryQuote))
}
