package envutil

import (
	"os"
	"strconv"
	"strings"
)

// String returns the trimmed value of name, or def when unset or blank.
func String(name string, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Lookup returns the trimmed value of name and whether it was set to something non-blank.
func Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Key turns a dotted configuration path into an environment variable prefix,
// e.g. "app.database" -> "APP_DATABASE".
func Key(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.NewReplacer(".", "_", "-", "_", ":", "_").Replace(p)
		out = append(out, strings.ToUpper(p))
	}
	return strings.Join(out, "_")
}
