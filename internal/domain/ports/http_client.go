package ports

import "net/http"

// HTTPClient abstracts the outbound HTTP client so gateway and collaborator
// adapters can be driven by stubs in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
