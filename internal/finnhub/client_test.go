package finnhub_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"quotestash/internal/finnhub"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	// Assert: a valid token should return a client.
	client, err := finnhub.NewClient("test")
	require.NoErrorf(t, err, "unexpected error: %v", err)
	require.NotNilf(t, client, "unexpected nil client")
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with a custom HTTP client.
	client, err := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call Quote with the custom HTTP client.
	client.Quote(context.Background(), "AAPL")
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: define a base url
	baseURL := "http://localhost:8080"

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with an overridden base URL.
	client, err := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient), finnhub.WithBaseURL(baseURL))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call Quote with the overridden base URL.
	client.Quote(context.Background(), "AAPL")
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with a custom header.
	client, err := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient), finnhub.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call Quote with the custom header.
	client.Quote(context.Background(), "AAPL")
}
