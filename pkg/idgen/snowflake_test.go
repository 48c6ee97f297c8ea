package idgen

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_WorkerRange(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)
	_, err = NewSnowflake(maxWorkerID + 1)
	assert.Error(t, err)
	_, err = NewSnowflake(maxWorkerID)
	assert.NoError(t, err)
}

func TestSnowflake_UniqueAndIncreasing(t *testing.T) {
	s, err := NewSnowflake(3)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id := s.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8000)

	a, b := s.Generate(), s.Generate()
	assert.Greater(t, b, a)
}

func TestSnowflake_ClockBackwards(t *testing.T) {
	s, err := NewSnowflake(1)
	require.NoError(t, err)
	base := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	first := s.Generate()

	s.now = func() time.Time { return base.Add(-time.Second) }
	assert.Greater(t, s.Generate(), first)
}

func TestReferences_Format(t *testing.T) {
	s, err := NewSnowflake(1)
	require.NoError(t, err)
	refs := NewReferences(s)
	refs.now = func() time.Time { return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC) }

	assert.Regexp(t, regexp.MustCompile(`^LC20260310093000\d{8}$`), refs.LC())
	assert.Regexp(t, regexp.MustCompile(`^BG20260310093000\d{8}$`), refs.BG())
	assert.Regexp(t, regexp.MustCompile(`^DOC20260310093000\d{8}$`), refs.Document())
	assert.NotEqual(t, refs.LC(), refs.LC())
}
