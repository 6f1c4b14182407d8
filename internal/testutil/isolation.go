package testutil

import (
	"os"
	"strings"
	"testing"
)

// EnvPrefix is the prefix of every environment variable the host reads.
const EnvPrefix = "MODHOST_"

// Isolate snapshots every MODHOST_* environment variable and unsets them, then
// registers a t.Cleanup that restores the snapshot. Use it at the top of tests
// that load host configuration.
func Isolate(t *testing.T) {
	t.Helper()

	snapshot := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		snapshot[k] = v
		_ = os.Unsetenv(k)
	}

	t.Cleanup(func() {
		for _, kv := range os.Environ() {
			if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
				_ = os.Unsetenv(k)
			}
		}
		for k, v := range snapshot {
			_ = os.Setenv(k, v)
		}
	})
}
