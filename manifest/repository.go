package manifest

import (
	"fmt"
	"strings"
)

// Repository is a named artifact repository a module may resolve dependencies against.
type Repository struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	URL  string `json:"url" yaml:"url" toml:"url"`
}

// DefaultRepositories is the process-wide default set. Hosts may replace it
// through provider options; modules can only add to it.
var DefaultRepositories = []Repository{
	{Name: "maven", URL: "https://repo1.maven.org/maven2/"},
}

// Validate checks that both name and url are present.
func (r Repository) Validate() error {
	if r.Name == "" || r.URL == "" {
		return fmt.Errorf("%w: name and url are required (got name=%q url=%q)", ErrInvalidRepository, r.Name, r.URL)
	}
	return nil
}

// MergeRepositories builds the repository name to base URL map used for
// resolution. Defaults are applied first; declared repositories only add names
// that are not present yet. Every base URL ends with a slash.
func MergeRepositories(defaults, declared []Repository) map[string]string {
	repos := make(map[string]string, len(defaults)+len(declared))
	for _, r := range defaults {
		if r.Name == "" || r.URL == "" {
			continue
		}
		repos[r.Name] = normalizeBaseURL(r.URL)
	}
	for _, r := range declared {
		if r.Name == "" || r.URL == "" {
			continue
		}
		if _, exists := repos[r.Name]; exists {
			continue
		}
		repos[r.Name] = normalizeBaseURL(r.URL)
	}
	return repos
}

func normalizeBaseURL(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
