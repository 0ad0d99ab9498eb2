package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"quotestash/internal/finnhub"
	"quotestash/internal/handler"
)

type fakeSource struct {
	quotes map[string]*finnhub.Quote
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) Quote(_ context.Context, symbol string) (*finnhub.Quote, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.quotes[symbol], nil
}

type fakeStore struct {
	objects map[string][]byte
	failAll bool
}

func (f *fakeStore) Put(_ context.Context, key string, body []byte, _ string) error {
	if f.failAll {
		return fmt.Errorf("access denied")
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = body
	return nil
}

func newHandler(cfg handler.Config, src *fakeSource, store *fakeStore) *handler.Handler {
	return handler.New(cfg, src, store, zerolog.Nop())
}

func TestHandle_PartialFailureStoresTheRest(t *testing.T) {
	// AAA succeeds with price 10.5, BBB is rate limited. Expect one
	// object for AAA, none for BBB, and a successful completion.
	src := &fakeSource{
		quotes: map[string]*finnhub.Quote{"AAA": {Current: 10.5}},
		errs:   map[string]error{"BBB": finnhub.ErrRateLimited},
	}
	store := &fakeStore{}
	h := newHandler(handler.Config{Symbols: []string{"AAA", "BBB"}, Source: "finnhub"}, src, store)

	report, err := h.Handle(context.Background(), handler.Event{})
	require.NoError(t, err)
	require.Len(t, report.Stored, 1)
	require.Len(t, report.Failed, 1)
	require.Equal(t, "BBB", report.Failed[0].Symbol)
	require.Len(t, store.objects, 1)

	var rec struct {
		Quote struct {
			Current float64 `json:"c"`
		} `json:"quote"`
		Metadata struct {
			Symbol string `json:"symbol"`
			Source string `json:"source"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(store.objects[report.Stored[0]], &rec))
	require.InEpsilon(t, 10.5, rec.Quote.Current, 0.0001)
	require.Equal(t, "AAA", rec.Metadata.Symbol)
	require.Equal(t, "finnhub", rec.Metadata.Source)
	require.True(t, strings.HasPrefix(report.Stored[0], "AAA/"))
}

func TestHandle_AllSymbolsFail(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"AAA": finnhub.ErrRateLimited,
		"BBB": fmt.Errorf("connection reset"),
	}}
	store := &fakeStore{}
	h := newHandler(handler.Config{Symbols: []string{"AAA", "BBB"}}, src, store)

	report, err := h.Handle(context.Background(), handler.Event{})
	require.ErrorIs(t, err, handler.ErrNoSymbolsStored)
	require.Empty(t, report.Stored)
	require.Len(t, report.Failed, 2)
	require.Empty(t, store.objects)
}

func TestHandle_StoreFailureIsPerSymbol(t *testing.T) {
	src := &fakeSource{quotes: map[string]*finnhub.Quote{
		"AAA": {Current: 1},
		"BBB": {Current: 2},
	}}
	store := &fakeStore{failAll: true}
	h := newHandler(handler.Config{Symbols: []string{"AAA", "BBB"}}, src, store)

	// Both fetches succeed, both writes fail: all symbols visited,
	// invocation reported as failed.
	report, err := h.Handle(context.Background(), handler.Event{})
	require.ErrorIs(t, err, handler.ErrNoSymbolsStored)
	require.Equal(t, []string{"AAA", "BBB"}, src.calls)
	require.Len(t, report.Failed, 2)
}

func TestHandle_AuthErrorAbortsInvocation(t *testing.T) {
	src := &fakeSource{errs: map[string]error{"AAA": finnhub.ErrUnauthorized}}
	store := &fakeStore{}
	h := newHandler(handler.Config{Symbols: []string{"AAA", "BBB", "CCC"}}, src, store)

	_, err := h.Handle(context.Background(), handler.Event{})
	require.ErrorIs(t, err, finnhub.ErrUnauthorized)
	// No per-symbol retry makes sense with a rejected credential.
	require.Equal(t, []string{"AAA"}, src.calls)
	require.Empty(t, store.objects)
}

func TestHandle_EventSymbolsOverrideConfig(t *testing.T) {
	src := &fakeSource{quotes: map[string]*finnhub.Quote{"MSFT": {Current: 400}}}
	store := &fakeStore{}
	h := newHandler(handler.Config{Symbols: []string{"AAPL"}}, src, store)

	report, err := h.Handle(context.Background(), handler.Event{Symbols: []string{"MSFT"}})
	require.NoError(t, err)
	require.Equal(t, []string{"MSFT"}, src.calls)
	require.Len(t, report.Stored, 1)
}

func TestHandle_DistinctInvocationsNeverOverwrite(t *testing.T) {
	src := &fakeSource{quotes: map[string]*finnhub.Quote{"AAPL": {Current: 1}}}
	store := &fakeStore{}
	h := newHandler(handler.Config{Symbols: []string{"AAPL"}}, src, store)

	_, err := h.Handle(context.Background(), handler.Event{})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = h.Handle(context.Background(), handler.Event{})
	require.NoError(t, err)

	require.Len(t, store.objects, 2)
}
