package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (f *fakeClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func TestEmbedWidensToFloat64(t *testing.T) {
	client := &fakeClient{vectors: [][]float32{{0.5, 0.25}}}
	e, err := NewWithClient(client, "all-minilm")
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, v)
	assert.Equal(t, 2, e.Dimension())
	assert.Equal(t, "langchain:all-minilm", e.Name())
	require.Len(t, client.texts, 1)
	assert.NotContains(t, client.texts[0], "\n")
}

func TestEmbedError(t *testing.T) {
	e, err := NewWithClient(&fakeClient{err: errors.New("boom")}, "m")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 0, e.Dimension())
}

func TestModelRequired(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrModelRequired)
	_, err = NewWithClient(&fakeClient{}, "")
	assert.ErrorIs(t, err, ErrModelRequired)
}
