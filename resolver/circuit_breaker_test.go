package resolver

import (
	"context"
	"errors"
	"testing"
)

type failingFetcher struct {
	calls int
}

func (f *failingFetcher) Fetch(ctx context.Context, rawURL string) (*Artifact, error) {
	f.calls++
	return nil, ErrUpstreamDown
}

func TestCircuitBreakerOpensPerHost(t *testing.T) {
	inner := &failingFetcher{}
	cbf := NewCircuitBreakerFetcher(inner)

	for range 5 {
		_, _ = cbf.Fetch(context.Background(), "https://down.example.com/lib.jar")
	}
	if inner.calls != 5 {
		t.Fatalf("calls = %d, want 5", inner.calls)
	}

	_, err := cbf.Fetch(context.Background(), "https://down.example.com/other.jar")
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("Fetch = %v, want ErrUpstreamDown", err)
	}
	if inner.calls != 5 {
		t.Errorf("calls = %d, want 5 (breaker open)", inner.calls)
	}

	states := cbf.BreakerStates()
	if states["down.example.com"] != "open" {
		t.Errorf("state = %q, want open", states["down.example.com"])
	}

	_, _ = cbf.Fetch(context.Background(), "https://up.example.com/lib.jar")
	if inner.calls != 6 {
		t.Errorf("calls = %d, want 6 (other host unaffected)", inner.calls)
	}
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"https://repo1.maven.org/maven2/x.jar": "repo1.maven.org",
		"file:///tmp/x.jar":                    "file",
	}
	for in, want := range tests {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
