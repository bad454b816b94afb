package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Empty(t, store.Keys())
	assert.Equal(t, ":memory:", store.Path())
}

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(
		map[string]any{"llm.provider": "ollama", "llm.model": "llama3.2"},
		map[string]any{"llm.model": "mistral"},
	)

	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, "mistral", store.GetString("llm.model"), "later seeds win")
	assert.Equal(t, []string{"llm.model", "llm.provider"}, store.Keys())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("server.addr", ":8501"))
	require.NoError(t, store.Set("server.addr", ":9000"))

	val, ok := store.Get("server.addr")
	assert.True(t, ok)
	assert.Equal(t, ":9000", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore(map[string]any{"s": "text", "n": 42})

	assert.Equal(t, "text", store.GetString("s"))
	assert.Empty(t, store.GetString("n"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 42, 42},
		{"int64", int64(7), 7},
		{"float64", float64(15000), 15000},
		{"numeric string", "240", 240},
		{"bad string", "four", 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore(map[string]any{"k": tt.value})
			assert.Equal(t, tt.want, store.GetInt("k"))
		})
	}
	assert.Zero(t, NewConfigStore().GetInt("missing"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"true", true, true},
		{"false", false, false},
		{"string true", "true", true},
		{"string 1", "1", true},
		{"string junk", "yes please", false},
		{"int", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore(map[string]any{"k": tt.value})
			assert.Equal(t, tt.want, store.GetBool("k"))
		})
	}
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"strings": []string{"a", "b"},
		"mixed":   []any{"a", 1, "b"},
		"single":  "a",
		"number":  3,
	})

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("strings"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("mixed"))
	assert.Equal(t, []string{"a"}, store.GetStringSlice("single"))
	assert.Nil(t, store.GetStringSlice("number"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SaveAndLoadAreNoOps(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": "v"})

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "v", store.GetString("k"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key-%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key-%d", id))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 50)
	assert.Equal(t, 49, store.GetInt("key-49"))
}
