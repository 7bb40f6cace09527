package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yuelin-song/communitykb/internal/models"
	"github.com/yuelin-song/communitykb/pkg/chunker"
)

// BM25 parameters. The term-frequency component is binary presence rather
// than raw counts; the keyword bonus is tuned against that, so the two only
// change together.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

const keywordBonus = 0.5

// ChunkSource is the slice of the store the retriever needs.
type ChunkSource interface {
	ListChunks(ctx context.Context, community string) ([]models.Chunk, error)
}

// Retriever ranks a community's chunks against a query and renders the
// top matches into a context block for the model call.
type Retriever struct {
	source ChunkSource
}

func NewRetriever(source ChunkSource) *Retriever {
	return &Retriever{source: source}
}

// Retrieve scores all chunks of the community against the query and returns
// the topK best as an annotated context string. An empty knowledge base
// yields "". When the query has no usable terms, or nothing overlaps
// lexically, the first topK chunks are returned instead.
func (r *Retriever) Retrieve(ctx context.Context, community, query string, topK int) (string, error) {
	chunks, err := r.source.ListChunks(ctx, community)
	if err != nil {
		return "", fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil
	}
	if topK < 1 {
		topK = 1
	}

	queryTerms := chunker.Tokenize(query)
	if len(queryTerms) == 0 {
		return renderContext(firstN(chunks, topK)), nil
	}

	// Per-chunk token sets and corpus document frequencies, computed over
	// an immutable snapshot fetched once per call.
	n := len(chunks)
	docFreq := make(map[string]int)
	tokenSets := make([]map[string]bool, n)
	totalLen := 0

	for i, c := range chunks {
		set := make(map[string]bool)
		for _, tok := range chunker.Tokenize(c.Content) {
			set[tok] = true
		}
		tokenSets[i] = set
		totalLen += len([]rune(c.Content))
		for term := range set {
			docFreq[term]++
		}
	}
	avgDL := float64(totalLen) / float64(n)

	type scored struct {
		score float64
		idx   int
	}
	ranked := make([]scored, n)

	for i, c := range chunks {
		score := 0.0
		dl := float64(len([]rune(c.Content)))
		keywords := strings.ToLower(c.Keywords)

		for _, term := range queryTerms {
			df, ok := docFreq[term]
			if !ok {
				continue
			}
			idf := math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)

			tf := 0.0
			if tokenSets[i][term] {
				tf = 1.0
			}
			denom := tf + bm25K1*(1-bm25B+bm25B*dl/avgDL)
			if denom > 0 {
				score += idf * (tf * (bm25K1 + 1)) / denom
			}
		}

		for _, term := range queryTerms {
			if strings.Contains(keywords, term) {
				score += keywordBonus
			}
		}

		ranked[i] = scored{score: score, idx: i}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	if ranked[0].score <= 0 {
		// No lexical overlap at all; zero-relevance matches help nobody.
		return renderContext(firstN(chunks, topK)), nil
	}

	top := ranked
	if len(top) > topK {
		top = top[:topK]
	}
	picked := make([]models.Chunk, len(top))
	for i, s := range top {
		picked[i] = chunks[s.idx]
	}
	return renderContext(picked), nil
}

func firstN(chunks []models.Chunk, n int) []models.Chunk {
	if len(chunks) > n {
		chunks = chunks[:n]
	}
	return chunks
}

func renderContext(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		name := c.DocumentName
		if name == "" {
			name = "unknown"
		}
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", name, c.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
