package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	args := m.Called(ctx, query, k)
	hits, _ := args.Get(0).([]domain.Hit)
	return hits, args.Error(1)
}

func hitsFor(lines ...string) []domain.Hit {
	out := make([]domain.Hit, len(lines))
	for i, l := range lines {
		out[i] = domain.Hit{Document: domain.Document{ID: fmt.Sprint(i), Text: l}, Score: 1 - float64(i)/100}
	}
	return out
}

func book(key int64, category string, emotions map[catalog.Emotion]float64) catalog.Book {
	return catalog.Book{
		ISBN:     key,
		Title:    fmt.Sprintf("Book %d", key),
		Authors:  "Smith",
		Category: category,
		Emotions: emotions,
	}
}

// testCatalog: 1..6 with mixed categories and sadness scores.
func testCatalog() *catalog.Store {
	return catalog.NewStore([]catalog.Book{
		book(1, "Fiction", map[catalog.Emotion]float64{catalog.Sadness: 0.2, catalog.Joy: 0.9}),
		book(2, "Nonfiction", map[catalog.Emotion]float64{catalog.Sadness: 0.8}),
		book(3, "Fiction", map[catalog.Emotion]float64{catalog.Sadness: 0.5}),
		book(4, "Fiction", map[catalog.Emotion]float64{catalog.Sadness: 0}),
		book(5, "Children's Fiction", map[catalog.Emotion]float64{catalog.Sadness: 0.5}),
		book(6, "Fiction", map[catalog.Emotion]float64{catalog.Sadness: 0.95}),
	})
}

func newTestEngine(t *testing.T, s Searcher, c Catalog) *Engine {
	t.Helper()
	e, err := NewEngine(s, c)
	require.NoError(t, err)
	return e
}

func isbns(books []catalog.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ISBN
	}
	return out
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, testCatalog())
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = NewEngine(&mockSearcher{}, nil)
	assert.ErrorIs(t, err, ErrCatalogRequired)
}

func TestRetrieveBlankQuerySkipsSearch(t *testing.T) {
	s := &mockSearcher{}
	e := newTestEngine(t, s, testCatalog())

	for _, text := range []string{"", "   ", "\t\n"} {
		res, err := e.Retrieve(context.Background(), Query{Text: text})
		require.NoError(t, err)
		assert.Equal(t, StatusEmptyQuery, res.Status)
		assert.Empty(t, res.Books)
		assert.Empty(t, res.Notice)
	}
	s.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieveUsesDefaults(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "space opera", DefaultCandidatePoolSize).Return(hitsFor("1 a", "2 b"), nil).Once()
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "  space opera  "})
	require.NoError(t, err)
	assert.Equal(t, StatusExact, res.Status)
	assert.Equal(t, 2, res.Candidates)
	s.AssertExpectations(t)
}

func TestRetrieveNoCandidates(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", 10).Return([]domain.Hit{}, nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", CandidatePoolSize: 10})
	require.NoError(t, err)
	assert.Equal(t, StatusNoCandidates, res.Status)
	assert.Equal(t, NoticeNoMatches, res.Notice)
	assert.Empty(t, res.Books)
}

func TestRetrieveBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(nil, cause)
	e := newTestEngine(t, s, testCatalog())

	_, err := e.Retrieve(context.Background(), Query{Text: "q"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestRetrieveTimeout(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	e, err := NewEngine(s, testCatalog(), WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), Query{Text: "q"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetrieveResultsComeFromCandidates(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", 3).Return(hitsFor("6 x", "2 y", "99 not in catalog"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", CandidatePoolSize: 3, ResultLimit: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusExact, res.Status)
	// Catalog order, not similarity order.
	assert.Equal(t, []int64{2, 6}, isbns(res.Books))
}

func TestRetrieveRespectsResultLimit(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "3 c", "4 d", "5 e", "6 f"), nil)
	e := newTestEngine(t, s, testCatalog())

	for _, limit := range []int{1, 3, 6, 15} {
		res, err := e.Retrieve(context.Background(), Query{Text: "q", ResultLimit: limit})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Books), limit)
	}
}

func TestRetrieveSkipsMalformedKeys(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("abc not a key", `"3" quoted key`, "", "1 plain"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, isbns(res.Books))
}

func TestRetrieveCategoryFilter(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "3 c", "5 e"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Category: "Fiction"})
	require.NoError(t, err)
	require.Equal(t, StatusExact, res.Status)
	for _, b := range res.Books {
		assert.Equal(t, "Fiction", b.Category)
	}
	assert.Equal(t, []int64{1, 3}, isbns(res.Books))

	res, err = e.Retrieve(context.Background(), Query{Text: "q", Category: "fiction"})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, res.Status, "category match is case-sensitive")
}

func TestRetrieveAllMeansNoFilter(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "4 d"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Category: catalog.All, Tone: catalog.All})
	require.NoError(t, err)
	assert.Equal(t, StatusExact, res.Status)
	assert.Equal(t, []int64{1, 2, 4}, isbns(res.Books))
}

func TestRetrieveToneSortsByEmotion(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "3 c", "4 d", "5 e", "6 f"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Tone: "Sad"})
	require.NoError(t, err)
	require.Equal(t, StatusExact, res.Status)
	// 4 has zero sadness; 3 and 5 tie and keep catalog order.
	assert.Equal(t, []int64{6, 2, 3, 5, 1}, isbns(res.Books))
	for i, b := range res.Books {
		assert.Positive(t, b.Score(catalog.Sadness))
		if i > 0 {
			assert.LessOrEqual(t, b.Score(catalog.Sadness), res.Books[i-1].Score(catalog.Sadness))
		}
	}
}

func TestRetrieveCategoryThenTone(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "3 c", "6 f"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Category: "Fiction", Tone: "Sad", ResultLimit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 3}, isbns(res.Books))
}

func TestRetrieveUnknownToneIsIgnored(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "4 d"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Tone: "Whimsical"})
	require.NoError(t, err)
	assert.Equal(t, StatusExact, res.Status)
	assert.Equal(t, []int64{1, 4}, isbns(res.Books))
}

func TestRetrieveToneWithoutEmotionColumnIsIgnored(t *testing.T) {
	books := catalog.NewStore([]catalog.Book{book(1, "Fiction", nil), book(2, "Fiction", nil)}, catalog.Joy)
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("2 b", "1 a"), nil)
	e := newTestEngine(t, s, books)

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Tone: "Sad"})
	require.NoError(t, err)
	assert.Equal(t, StatusExact, res.Status)
	assert.Equal(t, []int64{1, 2}, isbns(res.Books))
}

func TestRetrieveFallbackWhenToneMatchesNothing(t *testing.T) {
	books := catalog.NewStore([]catalog.Book{
		book(10, "Fiction", map[catalog.Emotion]float64{catalog.Joy: 0.7}),
		book(11, "Fiction", map[catalog.Emotion]float64{catalog.Fear: 0.4}),
		book(12, "Fiction", map[catalog.Emotion]float64{}),
	})
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("12 c", "10 a", "11 b"), nil)
	e := newTestEngine(t, s, books)

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Tone: "Sad", ResultLimit: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, res.Status)
	assert.True(t, res.Degraded)
	assert.Equal(t, NoticeFiltersTooStrict, res.Notice)
	assert.ElementsMatch(t, []int64{10, 11, 12}, isbns(res.Books))
}

func TestRetrieveFallbackIsTruncated(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("1 a", "2 b", "3 c", "4 d"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q", Category: "Poetry", ResultLimit: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, []int64{1, 2}, isbns(res.Books))
}

func TestRetrieveFallbackWithEmptyJoin(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("404 unknown"), nil)
	e := newTestEngine(t, s, testCatalog())

	res, err := e.Retrieve(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, res.Status)
	assert.Empty(t, res.Books)
}

func TestRetrieveIsIdempotent(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "q", mock.Anything).Return(hitsFor("6 f", "5 e", "3 c", "1 a"), nil)
	e := newTestEngine(t, s, testCatalog())
	q := Query{Text: "q", Category: "Fiction", Tone: "Sad", ResultLimit: 3}

	first, err := e.Retrieve(context.Background(), q)
	require.NoError(t, err)
	second, err := e.Retrieve(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "fallback", StatusFallback.String())
	text, err := StatusExact.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "exact", string(text))
}
