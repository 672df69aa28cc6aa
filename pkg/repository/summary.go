package repository

import "fmt"

// RequestContext carries the request-scoped values needed to build external
// URLs. It is immutable and constructed per request; handlers never write
// host or scheme back into shared configuration.
type RequestContext struct {
	// Host is the public host (and optional port) the client used.
	Host string

	// Secure reports whether the client connection was HTTPS, directly or
	// via X-Forwarded-Proto.
	Secure bool
}

// URL builds the public git URL for a repository id.
func (rc RequestContext) URL(id string) string {
	scheme := "http"
	if rc.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/git/%s", scheme, rc.Host, id)
}

// Summary is the canonical external representation of a repository.
type Summary struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Active  bool   `json:"active"`
	Size    int64  `json:"size"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}

// Summary derives the external representation from current disk state.
func (r *Repository) Summary(rc RequestContext) (Summary, error) {
	size, err := r.Size()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ID:      r.id,
		Created: true,
		Active:  r.Active(),
		Size:    size,
		Key:     r.ManagerKey(),
		URL:     rc.URL(r.id),
	}, nil
}
