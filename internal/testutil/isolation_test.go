package testutil

import (
	"os"
	"testing"
)

func TestIsolate_RestoresEnv(t *testing.T) {
	t.Setenv("MODHOST_MODULE_DIR", "orig")

	t.Run("inner", func(t *testing.T) {
		Isolate(t)
		if _, ok := os.LookupEnv("MODHOST_MODULE_DIR"); ok {
			t.Fatalf("MODHOST_MODULE_DIR should be unset inside an isolated test")
		}
		_ = os.Setenv("MODHOST_MODULE_DIR", "changed")
		_ = os.Setenv("MODHOST_API_ADDR", "added")
	})

	if v := os.Getenv("MODHOST_MODULE_DIR"); v != "orig" {
		t.Fatalf("expected MODHOST_MODULE_DIR=orig after restore, got %s", v)
	}
	if _, ok := os.LookupEnv("MODHOST_API_ADDR"); ok {
		t.Fatalf("MODHOST_API_ADDR should be unset after restore")
	}
}
