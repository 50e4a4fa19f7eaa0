package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `isbn13,title,authors,simple_categories,thumbnail,description,published_year,average_rating,num_pages,joy,surprise,anger,fear,sadness,disgust
9780001,Onward,Lee;Park,Fiction,http://img?id=1,A story about resilience and adventure,2001,4.1,300,0.6,0.1,0.0,0.1,0.0,0.0
9780002,Pasta,Rossi,Nonfiction,,A cookbook of regional pasta recipes,2010,3.9,200,0.2,0.0,0.0,0.0,0.0,0.0
9780003,Sextants,Cook,Nonfiction,,The history of maritime navigation instruments,1999,4.5,410,0.0,0.3,0.0,0.0,0.1,0.0
`

const testCorpus = `9780001 A story about resilience and adventure
9780002 A cookbook of regional pasta recipes
9780003 The history of maritime navigation instruments
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "books.csv")
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0o644))
	cfg := "embedder:\n  type: tfidf\nvector_store:\n  type: memory\ncatalog:\n  path: " + catalogPath +
		"\ncorpus:\n  path: " + corpusPath + "\n"
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"bookrec"}, args...))
	return out.String(), errOut.String(), err
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := run(t, "--log-level", "loud", "index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestIndexCommand(t *testing.T) {
	cfg := writeFixtures(t)
	out, _, err := run(t, "--config", cfg, "--log-level", "error", "index", "--reset")
	require.NoError(t, err)
	assert.Equal(t, "indexed 3 of 3 documents (0 malformed, 0 duplicates)\n", out)
}

func TestQueryCommand(t *testing.T) {
	cfg := writeFixtures(t)
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	out, _, err := run(t, "--config", cfg, "--log-level", "error",
		"query", "--limit", "2", "--csv", csvPath, "resilience", "and", "finding", "one's", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "Onward by Lee and Park: A story about resilience and adventure")
	assert.Contains(t, out, "http://img?id=1&fife=w800")
	assert.Equal(t, 2, strings.Count(out, "\n   "))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "9780001,Onward")
}

func TestQueryCommandFallbackNotice(t *testing.T) {
	cfg := writeFixtures(t)
	out, errOut, err := run(t, "--config", cfg, "--log-level", "error",
		"query", "--tone", "Angry", "resilience")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Showing top semantic matches instead.")
	assert.Contains(t, out, "Onward")
}

func TestQueryCommandRequiresText(t *testing.T) {
	_, _, err := run(t, "--log-level", "error", "query")
	require.Error(t, err)
}
