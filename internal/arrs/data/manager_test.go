package data

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueCache_ReusesSnapshotUntilExpiry(t *testing.T) {
	c := NewQueueCache(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	var calls atomic.Int32
	fetch := func(context.Context) ([]model.QueueRecord, error) {
		calls.Add(1)
		return []model.QueueRecord{{ID: 1}}, nil
	}

	for range 3 {
		records, err := c.Get(context.Background(), model.Radarr, "Default", fetch)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := c.Get(context.Background(), model.Radarr, "Default", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	c.Invalidate(model.Radarr, "Default")
	_, err = c.Get(context.Background(), model.Radarr, "Default", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueCache_DeduplicatesConcurrentFetches(t *testing.T) {
	c := NewQueueCache(time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]model.QueueRecord, error) {
		calls.Add(1)
		<-release
		return nil, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), model.Sonarr, "4K", fetch)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestQueueCache_ErrorsAreNotCached(t *testing.T) {
	c := NewQueueCache(time.Minute)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), model.Lidarr, "Default", func(context.Context) ([]model.QueueRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := c.Get(context.Background(), model.Lidarr, "Default", func(context.Context) ([]model.QueueRecord, error) {
		return []model.QueueRecord{{ID: 9}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
