package driven

// ConfigStore holds flat dot-separated settings such as "llm.provider".
// Typed getters return the zero value for missing keys and for values of
// another kind.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// GetStringSlice accepts both []string and the []any that decoded
	// TOML arrays arrive as.
	GetStringSlice(key string) []string

	// Set writes through to storage.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file, empty for stores that keep nothing on disk.
	Path() string
}
