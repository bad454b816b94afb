package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), store.Path())
	assert.DirExists(t, dir)
	assert.Empty(t, store.Keys())
}

func TestDefaultDir(t *testing.T) {
	t.Run("environment override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(HomeEnv, dir)

		got, err := DefaultDir()
		require.NoError(t, err)
		assert.Equal(t, dir, got)

		store, err := NewConfigStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ConfigFileName), store.Path())
	})

	t.Run("home directory", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("cannot determine home directory")
		}
		got, err := DefaultDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".bidwright"), got)
	})
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("server.max_upload_mb", 25))
	require.NoError(t, store.Set("prompts.watch", true))
	require.NoError(t, store.Set("export.formats", []string{"markdown", "pdf"}))

	assert.Equal(t, "openai", store.GetString("llm.provider"))
	assert.Equal(t, 25, store.GetInt("server.max_upload_mb"))
	assert.True(t, store.GetBool("prompts.watch"))
	assert.Equal(t, []string{"markdown", "pdf"}, store.GetStringSlice("export.formats"))

	t.Run("wrong kinds read as zero values", func(t *testing.T) {
		assert.Empty(t, store.GetString("server.max_upload_mb"))
		assert.Zero(t, store.GetInt("llm.provider"))
		assert.False(t, store.GetBool("llm.provider"))
		assert.Nil(t, store.GetStringSlice("llm.provider"))
	})

	t.Run("missing keys", func(t *testing.T) {
		_, ok := store.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, store.GetString("missing"))
		assert.Zero(t, store.GetInt("missing"))
		assert.False(t, store.GetBool("missing"))
		assert.Nil(t, store.GetStringSlice("missing"))
	})
}

func TestConfigStore_GetInt_NumericKinds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 7, 7},
		{"int64", int64(240), 240},
		{"whole float", 15000.0, 15000},
		{"fractional float", 1.5, 0},
		{"string", "12", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &ConfigStore{data: map[string]any{"k": tt.value}}
			assert.Equal(t, tt.want, store.GetInt("k"))
		})
	}
}

func TestConfigStore_PersistsAsNestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("llm.timeout_seconds", 90))
	require.NoError(t, store.Set("pipeline.fallback", "halt"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[llm]")
	assert.Contains(t, string(raw), "[pipeline]")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reopened.GetString("llm.provider"))
	assert.Equal(t, 90, reopened.GetInt("llm.timeout_seconds"))
	assert.Equal(t, "halt", reopened.GetString("pipeline.fallback"))
	assert.Equal(t, []string{"llm.provider", "llm.timeout_seconds", "pipeline.fallback"}, reopened.Keys())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[llm]
provider = "ollama"
base_url = "http://gpu:11434"

[server]
addr = ":9000"
session_ttl_minutes = 30

[prompts]
watch = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, "http://gpu:11434", store.GetString("llm.base_url"))
	assert.Equal(t, ":9000", store.GetString("server.addr"))
	assert.Equal(t, 30, store.GetInt("server.session_ttl_minutes"))
	assert.True(t, store.GetBool("prompts.watch"))
}

func TestConfigStore_Load_Errors(t *testing.T) {
	t.Run("invalid TOML", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[llm\nprovider ="), 0600))

		_, err := NewConfigStore(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config: parse")
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), nil, 0600))

		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		assert.Empty(t, store.Keys())
		require.NoError(t, store.Set("a", "b"))
	})

	t.Run("file removed after open", func(t *testing.T) {
		store := newTestConfigStore(t)
		require.NoError(t, store.Set("a", "b"))
		require.NoError(t, os.Remove(store.Path()))

		require.NoError(t, store.Load())
		_, ok := store.Get("a")
		assert.False(t, ok)
	})

	t.Run("config path is a directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, ConfigFileName), 0700))

		_, err := NewConfigStore(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config: read")
	})
}

func TestConfigStore_Save_Errors(t *testing.T) {
	t.Run("unencodable value", func(t *testing.T) {
		store := newTestConfigStore(t)
		err := store.Set("bad", make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config: encode")
	})

	t.Run("unwritable directory", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Getuid() == 0 {
			t.Skip("permission bits are not enforced")
		}
		dir := t.TempDir()
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		require.NoError(t, os.Chmod(dir, 0500))
		t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

		err = store.Save()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config: write")
	})
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes differ on windows")
	}
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("server.addr", ":8501")
		}()
		go func() {
			defer wg.Done()
			_ = store.GetString("server.addr")
		}()
	}
	wg.Wait()

	assert.Equal(t, ":8501", store.GetString("server.addr"))
}

func TestFlattenAndNestMap(t *testing.T) {
	nested := map[string]any{
		"llm":    map[string]any{"provider": "openai", "limits": map[string]any{"rpm": int64(60)}},
		"legacy": "x",
	}
	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{
		"llm.provider":   "openai",
		"llm.limits.rpm": int64(60),
		"legacy":         "x",
	}, flat)
	assert.Equal(t, nested, nestMap(flat))

	t.Run("value and table share a name", func(t *testing.T) {
		got := nestMap(map[string]any{"llm": "openai", "llm.model": "gpt-4o"})
		assert.Equal(t, map[string]any{"llm": "openai", "llm.model": "gpt-4o"}, got)
	})
}
