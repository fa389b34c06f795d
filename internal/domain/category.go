package domain

import "fmt"

// Category is the closed set of things a recommendation can be about.
type Category string

// Recommendation categories.
const (
	CategoryMovie        Category = "movie"
	CategoryShow         Category = "show"
	CategoryYouTube      Category = "youtube"
	CategoryPodcast      Category = "podcast"
	CategoryArtist       Category = "artist"
	CategorySong         Category = "song"
	CategoryGenre        Category = "genre"
	CategoryRestaurant   Category = "restaurant"
	CategoryRecipe       Category = "recipe"
	CategoryActivity     Category = "activity"
	CategoryVideoGame    Category = "video-game"
	CategoryBoardGame    Category = "board-game"
	CategoryBook         Category = "book"
	CategoryGraphicNovel Category = "graphic-novel"
	CategoryQuote        Category = "quote"
)

var allCategories = []Category{
	CategoryMovie,
	CategoryShow,
	CategoryYouTube,
	CategoryPodcast,
	CategoryArtist,
	CategorySong,
	CategoryGenre,
	CategoryRestaurant,
	CategoryRecipe,
	CategoryActivity,
	CategoryVideoGame,
	CategoryBoardGame,
	CategoryBook,
	CategoryGraphicNovel,
	CategoryQuote,
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryNames returns the category values as strings.
func CategoryNames() []string {
	out := make([]string, len(allCategories))
	for i, c := range allCategories {
		out[i] = string(c)
	}
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts s to a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
