package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fusionquant/internal/logging"
)

// HTTPClient is the thin, source-agnostic JSON fetcher every concrete
// adapter embeds, grounded on the prior sentiment.Analyzer http.Client
// usage. It carries its own bounded retry policy so a slow or flaky
// upstream never blocks the fan-out beyond its adapter's deadline.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   RetryPolicy
}

// NewHTTPClient builds an HTTPClient. An empty apiKey means the caller
// should treat the adapter as disabled.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: DefaultDeadline},
		Retry:   DefaultRetryPolicy(),
	}
}

// Enabled reports whether an API key has been configured for this source.
func (h *HTTPClient) Enabled() bool { return h != nil && h.APIKey != "" }

// GetJSON issues a GET against path with query params, retrying per
// h.Retry, and decodes the JSON body into out.
func (h *HTTPClient) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := h.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return Retry(ctx, h.Retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		if h.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.APIKey)
		}
		resp, err := h.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s: server error %d", path, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// Client errors are not retried: bounded-retry is for
			// transient failures, not malformed requests.
			return &permanentError{fmt.Errorf("%s: client error %d", path, resp.StatusCode)}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// permanentError marks an error Retry should not retry: a 4xx response means
// the request itself is malformed, and retrying it wastes the adapter's
// deadline on attempts that can never succeed.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// withDeadline bounds ctx to the given per-adapter timeout (/).
func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultDeadline
	}
	return context.WithTimeout(ctx, d)
}

var log = logging.Default().Named("adapters")
