// Package settings persists user preferences as typed key/value pairs.
//
// A Provider stores the raw values. Typed settings (IntSetting, BoolSetting,
// OptionsSetting and friends) bind a key and a default to a provider, and
// ChanSettings groups the settings the application reads at runtime.
package settings

// Provider stores raw setting values. Getters return def when the key is
// missing or holds a value of another type. Puts take effect immediately for
// readers; persisting them may happen later.
type Provider interface {
	GetInt(key string, def int) int
	PutInt(key string, value int)

	GetInt64(key string, def int64) int64
	PutInt64(key string, value int64)

	GetBool(key string, def bool) bool
	PutBool(key string, value bool)

	GetString(key string, def string) string
	PutString(key string, value string)
}

// values is the shared typed lookup over a raw map
type values map[string]any

func (v values) getInt64(key string) (int64, bool) {
	switch n := v[key].(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func (v values) getBool(key string) (bool, bool) {
	b, ok := v[key].(bool)
	return b, ok
}

func (v values) getString(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}
