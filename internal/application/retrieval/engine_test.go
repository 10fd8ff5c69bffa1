package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineSearchBuildsOnDemandAndFindsExactText(t *testing.T) {
	pages := map[string]string{
		testSources[0]: "MultiversX is a highly scalable fast and secure blockchain platform",
		testSources[1]: "The foundation supports builders across the ecosystem worldwide",
		testSources[2]: "Adaptive state sharding splits network transactions and state",
	}
	f := &fakeFetcher{pages: pages}
	e := &bagOfWordsEmbedder{}
	ix, err := NewIndexer(f, e, NewIndex(), IndexerConfig{Sources: testSources, ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)
	engine := NewEngine(e, ix, 0)
	assert.Equal(t, 3, engine.TopK())

	assert.Nil(t, ix.Index().Snapshot())
	hits, err := engine.Search(context.Background(), pages[testSources[2]])
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, testSources[2], hits[0].Segment.SourceID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.Equal(t, []string{pages[testSources[2]]}, ContextTexts(hits[:1]))

	more, err := engine.SearchK(context.Background(), "blockchain", 10)
	require.NoError(t, err)
	assert.Len(t, more, 3)
}

func TestEngineSearchErrors(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{}}
	e := &bagOfWordsEmbedder{}
	ix, err := NewIndexer(f, e, NewIndex(), IndexerConfig{Sources: testSources, ChunkSize: 100, ChunkOverlap: 0})
	require.NoError(t, err)
	engine := NewEngine(e, ix, 2)

	_, err = engine.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = engine.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrIngestionFailed)

	f.pages = map[string]string{testSources[0]: "hello"}
	_, err = ix.Rebuild(context.Background())
	require.NoError(t, err)

	e.err = errors.New("quota exceeded")
	_, err = engine.Search(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestEngineRejectsQueryDimensionMismatch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{testSources[0]: "hello"}}
	e := &bagOfWordsEmbedder{}
	ix, err := NewIndexer(f, e, NewIndex(), IndexerConfig{Sources: testSources, ChunkSize: 100})
	require.NoError(t, err)
	_, err = ix.Rebuild(context.Background())
	require.NoError(t, err)

	e.dim = 8
	_, err = NewEngine(e, ix, 3).Search(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestPromptHelpers(t *testing.T) {
	assert.Equal(t, "a b c", CompactOneLine(" a\n\tb   c \r\n"))
	assert.Equal(t, "abc…", TruncateRunes("abcdef", 3))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Empty(t, TruncateRunes("x", 0))
}
