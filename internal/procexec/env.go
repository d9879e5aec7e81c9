package procexec

import (
	"os"
	"sort"
	"strings"
)

// MergeEnv returns base with extra applied on top. Existing keys are
// overridden in place, new keys are appended in sorted order, and nothing is
// ever removed. base is not modified.
func MergeEnv(base []string, extra map[string]string) []string {
	merged := make([]string, len(base), len(base)+len(extra))
	copy(merged, base)
	if len(extra) == 0 {
		return merged
	}

	seen := make(map[string]bool, len(extra))
	for i, kv := range merged {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if v, override := extra[key]; override {
			merged[i] = key + "=" + v
			seen[key] = true
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+extra[k])
	}
	return merged
}

// ProcessEnv is MergeEnv over the current process environment. It returns
// nil when extra is empty so exec.Cmd inherits the environment unchanged.
func ProcessEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	return MergeEnv(os.Environ(), extra)
}

// ParseEnvPairs parses KEY=VALUE strings. Entries without '=' are skipped
// and returned separately so callers can report them.
func ParseEnvPairs(pairs []string) (map[string]string, []string) {
	env := make(map[string]string, len(pairs))
	var invalid []string
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			invalid = append(invalid, p)
			continue
		}
		env[k] = v
	}
	return env, invalid
}
