package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorAggregates(t *testing.T) {
	c := NewCollector()
	c.Record(OpSearch, 10*time.Millisecond)
	c.Record(OpSearch, 30*time.Millisecond)
	c.Record(OpEmbedding, 5*time.Millisecond)

	snap := c.Snapshot()
	require.Contains(t, snap.Operations, OpSearch)

	search := snap.Operations[OpSearch]
	assert.Equal(t, int64(2), search.Count)
	assert.Equal(t, int64(40), search.TotalTimeMs)
	assert.Equal(t, 20.0, search.AvgTimeMs)
	assert.Equal(t, int64(10), search.MinTimeMs)
	assert.Equal(t, int64(30), search.MaxTimeMs)

	assert.Equal(t, int64(1), snap.Operations[OpEmbedding].Count)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestCollectorEmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()
	assert.Empty(t, snap.Operations)
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(OpUpsert, time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(32), c.Snapshot().Operations[OpUpsert].Count)
}
