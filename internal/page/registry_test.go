package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesAndDropsPages(t *testing.T) {
	store := newBackend()
	auth, err := store.Register(context.Background(), "Mei", "mei@example.com", "pw")
	require.NoError(t, err)

	r := NewRegistry(store, 4, time.Hour, Options{Location: time.UTC})
	a := r.Page("s1", auth.User.ID, auth.Token)
	assert.Same(t, a, r.Page("s1", auth.User.ID, auth.Token))

	b := r.Page("s2", auth.User.ID, auth.Token)
	r.Page("s3", "someone-else", "t")
	coords := r.CoordinatorsFor(auth.User.ID)
	require.Len(t, coords, 2)
	assert.Contains(t, coords, a.Refresh)
	assert.Contains(t, coords, b.Refresh)

	r.Drop("s1")
	coords = r.CoordinatorsFor(auth.User.ID)
	require.Len(t, coords, 1)
	assert.Same(t, b.Refresh, coords[0])
	assert.NotSame(t, a, r.Page("s1", auth.User.ID, auth.Token))
}

func TestRegistryClosesEvictedPages(t *testing.T) {
	store := newBackend()
	r := NewRegistry(store, 1, time.Hour, Options{Location: time.UTC})
	first := r.Page("s1", "u", "t")
	r.Page("s2", "u", "t")

	// A closed page no longer follows the refresh token.
	before := first.Report.Snapshot().Key
	first.Refresh.Bump(context.Background())
	assert.Equal(t, before, first.Report.Snapshot().Key)
	assert.Equal(t, 1, r.Cache().Size())
}

func TestRegistryConcurrentFirstRequestsSharePage(t *testing.T) {
	store := newBackend()
	auth, err := store.Register(context.Background(), "Mei", "mei@example.com", "pw")
	require.NoError(t, err)
	r := NewRegistry(store, 4, time.Hour, Options{Location: time.UTC})

	pages := make([]*Page, 32)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range pages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			pages[i] = r.Page("s1", auth.User.ID, auth.Token)
		}(i)
	}
	close(start)
	wg.Wait()

	live := r.Page("s1", auth.User.ID, auth.Token)
	for _, p := range pages {
		require.Same(t, live, p)
	}
	assert.Equal(t, 1, r.Cache().Size())

	// The shared page still follows its refresh token.
	before := live.Report.Snapshot().Key
	live.Refresh.Bump(context.Background())
	assert.NotEqual(t, before, live.Report.Snapshot().Key)
}
