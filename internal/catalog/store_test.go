package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `isbn13,isbn10,title,authors,categories,thumbnail,description,published_year,average_rating,num_pages,simple_categories,anger,disgust,fear,joy,sadness,surprise,neutral
9780002005883,0002005883,Gilead,Marilynne Robinson,Fiction,http://books.google.com/books/content?id=KQZCPgAACAAJ&printsec=frontcover,A NOVEL THAT READERS and critics have been eagerly anticipating,2004.0,3.85,247.0,Fiction,0.06,0.27,0.92,0.06,0.96,0.08,0.70
9780002261982,0002261987,Spider's Web,"Charles Osborne""Agatha Christie",Detective and mystery stories,,A new Christie for Christmas,2000.0,3.83,241.0,Fiction,0.61,0.34,0.99,0.05,0.58,0.33,0.87
9780006178736,0006178731,Rage of angels,Sidney Sheldon,Fiction,http://books.google.com/cover3,,1993.0,,,Nonfiction,0.1,0.1,0.1,0.1,0.1,0.1,0.1
not-an-isbn,x,Broken,Nobody,,,,,,,,,,,,,,
9780002005883,0002005883,Gilead again,Someone,,,,,,,,,,,,,,
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	t.Run("fields", func(t *testing.T) {
		b, ok := s.Get(9780002005883)
		require.True(t, ok)
		assert.Equal(t, "Gilead", b.Title)
		assert.Equal(t, "Marilynne Robinson", b.Authors)
		assert.Equal(t, "Fiction", b.Category)
		require.NotNil(t, b.NumPages)
		assert.Equal(t, 247, *b.NumPages)
		require.NotNil(t, b.PublishedYear)
		assert.Equal(t, 2004, *b.PublishedYear)
		require.NotNil(t, b.AverageRating)
		assert.InDelta(t, 3.85, *b.AverageRating, 1e-9)
		assert.InDelta(t, 0.96, b.Score(Sadness), 1e-9)
		assert.InDelta(t, 0.27, b.Score(Disgust), 1e-9)
	})

	t.Run("large thumbnail derived once", func(t *testing.T) {
		b, _ := s.Get(9780002005883)
		assert.Equal(t, b.Thumbnail+"&fife=w800", b.LargeThumbnail)

		noCover, _ := s.Get(9780002261982)
		assert.Equal(t, NoCover, noCover.LargeThumbnail)
	})

	t.Run("nullable numerics", func(t *testing.T) {
		b, ok := s.Get(9780006178736)
		require.True(t, ok)
		assert.Nil(t, b.NumPages)
		assert.Nil(t, b.AverageRating)
		assert.Empty(t, b.Description)
	})

	t.Run("first duplicate wins", func(t *testing.T) {
		b, _ := s.Get(9780002005883)
		assert.Equal(t, "Gilead", b.Title)
	})

	t.Run("quoted multi-author field", func(t *testing.T) {
		b, _ := s.Get(9780002261982)
		assert.Equal(t, `Charles Osborne"Agatha Christie`, b.Authors)
	})

	t.Run("categories sorted", func(t *testing.T) {
		assert.Equal(t, []string{"Fiction", "Nonfiction"}, s.Categories())
	})

	t.Run("all emotion columns present", func(t *testing.T) {
		for _, e := range Emotions {
			assert.True(t, s.HasEmotion(e), "emotion %s", e)
		}
	})
}

func TestParseMissingEmotionColumn(t *testing.T) {
	csv := "isbn13,title,authors,simple_categories,joy\n1,A,B,Fiction,0.5\n"
	s, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, s.HasEmotion(Joy))
	assert.False(t, s.HasEmotion(Disgust))
}

func TestParseErrors(t *testing.T) {
	t.Run("missing isbn column", func(t *testing.T) {
		_, err := Parse(strings.NewReader("title,authors\nA,B\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("missing title column", func(t *testing.T) {
		_, err := Parse(strings.NewReader("isbn13,authors\n1,B\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("no usable rows", func(t *testing.T) {
		_, err := Parse(strings.NewReader("isbn13,title\nabc,A\n"))
		assert.ErrorIs(t, err, ErrEmptyCatalog)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSelectKeepsCatalogOrder(t *testing.T) {
	s := NewStore([]Book{
		{ISBN: 3, Title: "c"},
		{ISBN: 1, Title: "a"},
		{ISBN: 2, Title: "b"},
	})

	got := s.Select(map[int64]struct{}{2: {}, 3: {}, 99: {}})
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ISBN)
	assert.Equal(t, int64(2), got[1].ISBN)
}

func TestEmotionForTone(t *testing.T) {
	tests := map[string]Emotion{
		"Happy":       Joy,
		"Surprising":  Surprise,
		"Angry":       Anger,
		"Suspenseful": Fear,
		"Sad":         Sadness,
		"Disturbing":  Disgust,
	}
	for tone, want := range tests {
		got, ok := EmotionForTone(tone)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := EmotionForTone("Whimsical")
	assert.False(t, ok)
	_, ok = EmotionForTone(All)
	assert.False(t, ok)
}
