package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every tiewarp environment variable.
const EnvPrefix = "TIEWARP_"

// Kind is the value type of a configuration setting.
type Kind int

const (
	// KindString keeps the raw text.
	KindString Kind = iota
	// KindBool accepts true/false, yes/no, on/off and 1/0.
	KindBool
	// KindInt accepts base-10 integers.
	KindInt
	// KindFloat accepts decimal numbers.
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "TIEWARP_")
	mapping map[string]string // Env var -> config path
	kinds   map[string]Kind   // lower-cased config path -> value type
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "TIEWARP_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// defaultEnvMapping returns the short names that don't follow the
// SECTION_SETTING_NAME convention.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":    "logging.level",
		prefix + "LOG_FILE":     "logging.file",
		prefix + "STRICT_HOOKS": "history.strictHooks",
	}
}

// WithKinds types values by setting path, matched case-insensitively.
// Values for paths without a kind stay strings.
func (l *EnvLoader) WithKinds(kinds map[string]Kind) *EnvLoader {
	l.kinds = make(map[string]Kind, len(kinds))
	for path, k := range kinds {
		l.kinds[strings.ToLower(path)] = k
	}
	return l
}

// Ignored variables are read by the CLI, not the config tree.
var ignoredEnv = map[string]bool{
	"CONFIG": true,
}

// Load reads environment variables and returns a configuration map.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if ignoredEnv[strings.TrimPrefix(name, l.prefix)] {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			// TIEWARP_OVERLAY_IMAGE_WIDTH -> overlay.imageWidth
			path = l.envToPath(name)
		}
		kind := l.kinds[strings.ToLower(path)]
		v, err := parseValue(value, kind)
		if err != nil {
			return nil, &ParseError{
				Path:    name,
				Message: fmt.Sprintf("%q is not a valid %s for %s", value, kind, path),
				Err:     err,
			}
		}
		setByPath(config, path, v)
	}

	return config, nil
}

// envToPath converts TIEWARP_OVERLAY_IMAGE_WIDTH to overlay.imageWidth.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")

	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + setting
}

// parseValue converts s to the setting's kind.
func parseValue(s string, kind Kind) (any, error) {
	switch kind {
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, strconv.ErrSyntax
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, err
		}
		return i, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return s, nil
	}
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
