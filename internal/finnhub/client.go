package finnhub

import (
	"errors"
	"net/http"
	"net/url"
)

const baseURL = "https://finnhub.io/api/v1"

var (
	// ErrUnauthorized means Finnhub rejected the API token. There is no
	// point retrying per symbol; callers abort the whole invocation.
	ErrUnauthorized = errors.New("finnhub: api token rejected")
	// ErrRateLimited means the per-minute quota was exceeded. Callers
	// skip the symbol and continue.
	ErrRateLimited = errors.New("finnhub: rate limited")
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=finnhub_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Finnhub REST API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers sent with each request.
	header http.Header
	// query contains query parameters sent with each request.
	query url.Values
}

// Option is a configuration option for the Finnhub client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Finnhub API client. The token is passed as
// the "token" query parameter on every request, the scheme Finnhub
// documents for server-side use.
func NewClient(token string, options ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if token != "" {
		c.query.Add("token", token)
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}
