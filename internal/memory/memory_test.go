package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCappedToMaxRounds(t *testing.T) {
	s := New(5, 30*time.Minute)

	for i := 0; i < 20; i++ {
		s.Append("g1", 7, "user", fmt.Sprintf("q%d", i))
		s.Append("g1", 7, "assistant", fmt.Sprintf("a%d", i))
	}

	turns := s.History("g1", 7)
	require.Len(t, turns, 10)
	assert.Equal(t, Turn{Role: "user", Content: "q15"}, turns[0])
	assert.Equal(t, Turn{Role: "assistant", Content: "a19"}, turns[9], "most recent last")
}

func TestHistoryPrunesExpiredEntries(t *testing.T) {
	s := New(5, 30*time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	s.Append("g1", 7, "user", "old question")
	s.Append("g1", 7, "assistant", "old answer")

	current = base.Add(10 * time.Minute)
	s.Append("g1", 7, "user", "recent question")

	current = base.Add(31 * time.Minute)
	turns := s.History("g1", 7)

	require.Len(t, turns, 1)
	assert.Equal(t, "recent question", turns[0].Content)

	// Pruned list is persisted: rolling the clock back does not resurrect.
	current = base.Add(32 * time.Minute)
	assert.Len(t, s.History("g1", 7), 1)
}

func TestHistoryIsolatedPerCommunityAndUser(t *testing.T) {
	s := New(5, 30*time.Minute)
	s.Append("g1", 1, "user", "from g1 u1")
	s.Append("g1", 2, "user", "from g1 u2")
	s.Append("g2", 1, "user", "from g2 u1")

	require.Len(t, s.History("g1", 1), 1)
	assert.Equal(t, "from g1 u1", s.History("g1", 1)[0].Content)
	assert.Equal(t, "from g2 u1", s.History("g2", 1)[0].Content)
	assert.Empty(t, s.History("g3", 1))
}

func TestClear(t *testing.T) {
	s := New(5, 30*time.Minute)
	s.Append("g1", 1, "user", "hello")
	s.Clear("g1", 1)
	assert.Empty(t, s.History("g1", 1))
}

func TestConcurrentAppendAndHistory(t *testing.T) {
	s := New(5, 30*time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append("g1", int64(n%2), "user", "m")
				s.History("g1", int64(n%2))
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(s.History("g1", 0)), 10)
	assert.LessOrEqual(t, len(s.History("g1", 1)), 10)
}
