package library

import (
	"slices"
	"strconv"
	"strings"
)

// Keys returns the option names in lexical order, so that generated
// command lines are stable across runs.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Bool returns the option value as a boolean when it is one.
func (o Options) Bool(key string) (value, ok bool) {
	value, ok = o[key].(bool)
	return
}

// Render renders the option value of key. Booleans render as onTrue/onFalse.
func (o Options) Render(key, onTrue, onFalse string) string {
	return FormatValue(o[key], onTrue, onFalse)
}

// FormatValue renders a scalar option value.
func FormatValue(v any, onTrue, onFalse string) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return onTrue
		}
		return onFalse
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, FormatValue(e, onTrue, onFalse))
		}
		return strings.Join(parts, ";")
	}
	return ""
}

// OptionFlag turns an option key into a long command line flag,
// e.g. "enable_shared" becomes "--enable-shared".
func OptionFlag(key string) string {
	return "--" + strings.ReplaceAll(key, "_", "-")
}
