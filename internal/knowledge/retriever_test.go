package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuelin-song/communitykb/internal/models"
)

type fakeChunkSource struct {
	chunks []models.Chunk
	err    error
}

func (f *fakeChunkSource) ListChunks(_ context.Context, _ string) ([]models.Chunk, error) {
	return f.chunks, f.err
}

func corpusChunks() []models.Chunk {
	texts := []string{
		"Bitcoin is a decentralized digital currency.",
		"Ethereum uses smart contracts.",
		"Weather today is sunny.",
		"Python is popular.",
	}
	chunks := make([]models.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = models.Chunk{
			ID:           int64(i + 1),
			DocumentID:   1,
			Community:    "g1",
			Index:        i,
			Content:      txt,
			DocumentName: "notes.txt",
		}
	}
	return chunks
}

func TestRetrieveRanksLexicalMatchFirst(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{chunks: corpusChunks()})

	got, err := r.Retrieve(context.Background(), "g1", "What is Bitcoin?", 2)
	require.NoError(t, err)

	assert.Contains(t, got, "Bitcoin is a decentralized digital currency.")

	weatherPos := strings.Index(got, "Weather today")
	bitcoinPos := strings.Index(got, "Bitcoin is a decentralized")
	if weatherPos >= 0 {
		assert.Less(t, bitcoinPos, weatherPos, "weather chunk ranked above bitcoin chunk")
	}
}

func TestRetrieveEmptyKnowledgeBase(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{})
	got, err := r.Retrieve(context.Background(), "g1", "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestRetrieveNoQueryTermsFallsBackToFirstChunks(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{chunks: corpusChunks()})
	got, err := r.Retrieve(context.Background(), "g1", "?!", 2)
	require.NoError(t, err)

	assert.Contains(t, got, "Bitcoin is a decentralized digital currency.")
	assert.Contains(t, got, "Ethereum uses smart contracts.")
	assert.NotContains(t, got, "Weather today is sunny.")
}

func TestRetrieveNoOverlapFallsBackToFirstChunks(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{chunks: corpusChunks()})
	got, err := r.Retrieve(context.Background(), "g1", "zebra quantum", 1)
	require.NoError(t, err)
	assert.Contains(t, got, "Bitcoin is a decentralized digital currency.")
}

func TestRetrieveKeywordBonusBreaksTies(t *testing.T) {
	chunks := []models.Chunk{
		{ID: 1, Content: "Staking rewards are paid weekly.", DocumentName: "a.txt"},
		{ID: 2, Content: "Staking rewards are paid weekly?", Keywords: "staking,rewards", DocumentName: "b.txt"},
	}
	r := NewRetriever(&fakeChunkSource{chunks: chunks})

	got, err := r.Retrieve(context.Background(), "g1", "staking rewards", 1)
	require.NoError(t, err)
	assert.Contains(t, got, "[Source: b.txt]")
}

func TestRetrieveClampsTopK(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{chunks: corpusChunks()})
	got, err := r.Retrieve(context.Background(), "g1", "bitcoin", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(got, "[Source:"))
}

func TestRetrieveAnnotatesSources(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{chunks: corpusChunks()})
	got, err := r.Retrieve(context.Background(), "g1", "bitcoin currency", 2)
	require.NoError(t, err)
	assert.Contains(t, got, "[Source: notes.txt]")
	assert.Contains(t, got, "\n\n---\n\n")
}

func TestRetrievePropagatesSourceError(t *testing.T) {
	r := NewRetriever(&fakeChunkSource{err: errors.New("db down")})
	_, err := r.Retrieve(context.Background(), "g1", "bitcoin", 5)
	assert.Error(t, err)
}
