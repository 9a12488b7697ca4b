package batch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outfitlab/outfitflow/outfit"
	"github.com/outfitlab/outfitflow/testutil"
)

func testRequest(owner string, n int) Request {
	return Request{
		Owner:    owner,
		Kind:     outfit.KindOutfitSuggestion,
		Items:    testutil.Wardrobe(n),
		Priority: PriorityMedium,
	}
}

func TestEnqueueNewRecord(t *testing.T) {
	table := NewPendingTable()

	fp, w, hit := table.Enqueue(testRequest("alice", 2))

	assert.False(t, hit)
	assert.NotEmpty(t, fp)
	assert.NotNil(t, w)
	assert.Equal(t, 1, table.Size())
}

func TestEnqueueDedupHit(t *testing.T) {
	table := NewPendingTable()

	fp1, _, hit1 := table.Enqueue(testRequest("alice", 2))
	fp2, _, hit2 := table.Enqueue(testRequest("alice", 2))

	assert.False(t, hit1)
	assert.True(t, hit2)
	assert.Equal(t, fp1, fp2)
	// Dedup hit attaches a waiter instead of creating a record.
	assert.Equal(t, 1, table.Size())

	records := table.DrainForFlush()
	require.Len(t, records, 1)
	assert.Len(t, records[0].waiters, 2)
}

func TestEnqueueDifferentOwnersSeparate(t *testing.T) {
	table := NewPendingTable()

	_, _, _ = table.Enqueue(testRequest("alice", 2))
	_, _, hit := table.Enqueue(testRequest("bob", 2))

	assert.False(t, hit)
	assert.Equal(t, 2, table.Size())
}

func TestEnqueuePriorityBump(t *testing.T) {
	table := NewPendingTable()

	req := testRequest("alice", 2)
	req.Priority = PriorityLow
	table.Enqueue(req)

	req.Priority = PriorityHigh
	_, _, hit := table.Enqueue(req)
	require.True(t, hit)

	assert.True(t, table.HasPriority(PriorityHigh))
	assert.False(t, table.HasPriority(PriorityLow))
}

func TestEnqueuePriorityNeverLowered(t *testing.T) {
	table := NewPendingTable()

	req := testRequest("alice", 2)
	req.Priority = PriorityHigh
	table.Enqueue(req)

	req.Priority = PriorityLow
	table.Enqueue(req)

	assert.True(t, table.HasPriority(PriorityHigh))
}

func TestDrainForFlush(t *testing.T) {
	table := NewPendingTable()
	table.Enqueue(testRequest("alice", 1))
	table.Enqueue(testRequest("bob", 1))

	records := table.DrainForFlush()

	assert.Len(t, records, 2)
	assert.Equal(t, 0, table.Size())

	// A drained record is no longer visible for dedup.
	_, _, hit := table.Enqueue(testRequest("alice", 1))
	assert.False(t, hit)
}

func TestDrainForFlushEmpty(t *testing.T) {
	table := NewPendingTable()
	assert.Empty(t, table.DrainForFlush())
}

func TestEnqueueConcurrentSameFingerprint(t *testing.T) {
	table := NewPendingTable()
	const n = 50

	var wg sync.WaitGroup
	hits := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, hit := table.Enqueue(testRequest("alice", 3))
			hits <- hit
		}()
	}
	wg.Wait()
	close(hits)

	misses := 0
	for hit := range hits {
		if !hit {
			misses++
		}
	}
	// Exactly one goroutine creates the record, everyone else attaches.
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, table.Size())

	records := table.DrainForFlush()
	require.Len(t, records, 1)
	assert.Len(t, records[0].waiters, n)
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityHigh.rank(), PriorityMedium.rank())
	assert.Greater(t, PriorityMedium.rank(), PriorityLow.rank())
	// Unknown priorities sort with medium.
	assert.Equal(t, PriorityMedium.rank(), Priority("??").rank())
}
