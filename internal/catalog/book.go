package catalog

import "strings"

const (
	// LargeThumbnailSuffix asks the cover host for a wider rendition.
	LargeThumbnailSuffix = "&fife=w800"
	// NoCover is used as the large thumbnail for books without a cover.
	NoCover = "no-cover-found.jpg"
)

// Book is one row of the metadata catalog.
type Book struct {
	ISBN           int64               `json:"isbn"`
	Title          string              `json:"title"`
	Authors        string              `json:"authors"`
	Category       string              `json:"category,omitempty"`
	Description    string              `json:"description,omitempty"`
	Thumbnail      string              `json:"thumbnail,omitempty"`
	LargeThumbnail string              `json:"large_thumbnail"`
	NumPages       *int                `json:"num_pages,omitempty"`
	AverageRating  *float64            `json:"average_rating,omitempty"`
	PublishedYear  *int                `json:"published_year,omitempty"`
	Emotions       map[Emotion]float64 `json:"emotions,omitempty"`
}

// Score returns the book's intensity for an emotion, zero when unknown.
func (b Book) Score(e Emotion) float64 {
	return b.Emotions[e]
}

func largeThumbnail(thumbnail string) string {
	if strings.TrimSpace(thumbnail) == "" {
		return NoCover
	}
	return thumbnail + LargeThumbnailSuffix
}
