// Package tfidf is a corpus-fitted embedder that needs no external service.
// Vectors live in the vocabulary space of the corpus it was prepared on, so an
// index process and a query process must prepare over the same corpus.
package tfidf

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotPrepared is returned by Embed before Prepare has built a vocabulary.
	ErrNotPrepared = errors.New("tfidf embedder not prepared")
	// ErrNoTokens is returned by Prepare when no document yields a term.
	ErrNoTokens = errors.New("no tokens found in corpus")
)

// Letters only: the ISBN prefix of corpus lines never enters the vocabulary.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// vocabulary is immutable once built; Prepare swaps in a new one.
type vocabulary struct {
	terms       map[string]int
	idf         []float64
	fingerprint string
}

// Embedder implements a TF-IDF vectorizer with smoothed IDF and L2
// normalization. It is safe for concurrent use.
type Embedder struct {
	mu        sync.RWMutex
	vocab     *vocabulary
	stopwords map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

// Name identifies the embedding space. The fingerprint changes whenever the
// vocabulary does.
func (e *Embedder) Name() string {
	v := e.current()
	if v == nil {
		return "tfidf"
	}
	return "tfidf:" + v.fingerprint
}

// Prepare fits the vocabulary and IDF weights to corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := e.documentFrequencies(corpus)
	if len(df) == 0 {
		return ErrNoTokens
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &vocabulary{
		terms: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	h := sha1.New()
	for i, term := range terms {
		v.terms[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
		h.Write([]byte(term))
		h.Write([]byte{0})
	}
	v.fingerprint = hex.EncodeToString(h.Sum(nil)[:6])

	e.mu.Lock()
	e.vocab = v
	e.mu.Unlock()
	return nil
}

// Dimension returns the vocabulary size, or 0 before Prepare.
func (e *Embedder) Dimension() int {
	if v := e.current(); v != nil {
		return len(v.idf)
	}
	return 0
}

// Embed returns the L2-normalized TF-IDF vector of text. Text with no known
// terms yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	v := e.current()
	if v == nil {
		return nil, ErrNotPrepared
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := v.terms[tok]; ok {
			counts[idx]++
			total++
		}
	}
	vec := make([]float64, len(v.idf))
	if total == 0 {
		return vec, nil
	}
	var sumSq float64
	for idx, c := range counts {
		w := float64(c) / float64(total) * v.idf[idx]
		vec[idx] = w
		sumSq += w * w
	}
	norm := math.Sqrt(sumSq)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}

func (e *Embedder) current() *vocabulary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vocab
}

func (e *Embedder) documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

func (e *Embedder) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := e.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := strings.Fields(`a an the and or but if then else for to of in on at by with as
		is are was were be been being it its this that these those from up down over under
		again further than so such into about between through during before after above below
		out off own same too very can will just should now his her their our your who whom`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
