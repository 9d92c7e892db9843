package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-rag/internal/models"
)

func TestKey(t *testing.T) {
	k := Key(models.Physics, "Oscillations", "some context", 5)
	assert.Equal(t, k, Key(models.Physics, "Oscillations", "some context", 5))
	assert.Regexp(t, `^physics:Oscillations:[0-9a-f]{8}:5$`, k)

	assert.NotEqual(t, k, Key(models.Physics, "Oscillations", "some context", 6))
	assert.NotEqual(t, k, Key(models.Physics, "Oscillations", "other context", 5))
	assert.NotEqual(t, k, Key(models.Chemistry, "Oscillations", "some context", 5))
	// md5("") = d41d8cd98f00b204e9800998ecf8427e
	assert.Equal(t, "biology:Genetics:d41d8cd9:1", Key(models.Biology, "Genetics", "", 1))
}

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := Entry{MCQs: "Q1. x", Chapter: "Oscillations"}
	require.NoError(t, m.Put(ctx, "k", want))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestMemory_EvictsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(DefaultCapacity)

	for i := 0; i <= DefaultCapacity; i++ {
		require.NoError(t, m.Put(ctx, fmt.Sprintf("k%d", i), Entry{MCQs: "Q1."}))
		// reads must not refresh the first key
		m.Get(ctx, "k0")
	}

	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, n)

	_, ok, _ := m.Get(ctx, "k0")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok, _ = m.Get(ctx, "k1")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, fmt.Sprintf("k%d", DefaultCapacity))
	assert.True(t, ok)
}

func TestMemory_OverwriteKeepsPosition(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	require.NoError(t, m.Put(ctx, "a", Entry{MCQs: "1"}))
	require.NoError(t, m.Put(ctx, "b", Entry{MCQs: "2"}))
	require.NoError(t, m.Put(ctx, "a", Entry{MCQs: "3"}))

	n, _ := m.Len(ctx)
	assert.Equal(t, 2, n)
	got, _, _ := m.Get(ctx, "a")
	assert.Equal(t, "3", got.MCQs)

	require.NoError(t, m.Put(ctx, "c", Entry{MCQs: "4"}))
	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok, "overwritten key keeps its original slot and is evicted first")
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewMemory(0).capacity)
	assert.Equal(t, DefaultCapacity, NewMemory(-3).capacity)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				_ = m.Put(ctx, key, Entry{MCQs: key})
				if e, ok, _ := m.Get(ctx, key); ok {
					assert.Equal(t, key, e.MCQs)
				}
			}
		}(g)
	}
	wg.Wait()

	n, _ := m.Len(ctx)
	assert.Equal(t, 10, n)
	assert.Len(t, m.order, 10)
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/2", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			assert.Equal(t, tt.wantErr, err != nil, "ParseURL(%q) error = %v", tt.url, err)
		})
	}
}

func TestNewRedis_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}
	_, err := NewRedis(context.Background(), "redis://localhost:59999", "mcq-test", 2)
	assert.Error(t, err)
}

func TestRedis_FIFO(t *testing.T) {
	url := os.Getenv("MCQ_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MCQ_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url, "mcq-test", 2)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Clear(ctx))
	t.Cleanup(func() { _ = r.Clear(context.Background()) })

	require.NoError(t, r.Put(ctx, "a", Entry{MCQs: "1", Chapter: "Optics"}))
	require.NoError(t, r.Put(ctx, "b", Entry{MCQs: "2"}))
	require.NoError(t, r.Put(ctx, "a", Entry{MCQs: "3", Chapter: "Optics"}))
	require.NoError(t, r.Put(ctx, "c", Entry{MCQs: "4"}))

	n, err := r.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := r.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Entry{MCQs: "2"}, got)
}
