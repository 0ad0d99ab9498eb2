// Package handler implements the scheduled fetch-transform-store
// cycle: one Finnhub quote per configured symbol, one S3 object per
// (symbol, invocation) pair. A symbol failing does not abort the
// invocation; all symbols failing does.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quotestash/internal/finnhub"
	"quotestash/internal/storage"
)

// ErrNoSymbolsStored is returned when every configured symbol failed,
// so the scheduler's invocation history records the tick as failed.
var ErrNoSymbolsStored = errors.New("all symbols failed, nothing stored")

// QuoteSource fetches one quote per call.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*finnhub.Quote, error)
}

// ObjectStore writes one serialized quote per call.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Event is the invocation payload. The scheduled trigger sends an
// empty document; a manual invoke may override the symbol list.
type Event struct {
	Symbols []string `json:"symbols,omitempty"`
}

// Report is the completion descriptor of one invocation.
type Report struct {
	Stored  []string        `json:"stored"`
	Failed  []SymbolFailure `json:"failed,omitempty"`
	Symbols int             `json:"symbols"`
}

type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// record is the stored object: the raw quote plus addressing metadata,
// mirroring what the API returned at that instant.
type record struct {
	Quote    *finnhub.Quote `json:"quote"`
	Metadata metadata       `json:"metadata"`
}

type metadata struct {
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

type Handler struct {
	cfg    Config
	source QuoteSource
	store  ObjectStore
	log    zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, source QuoteSource, store ObjectStore, log zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, source: source, store: store, log: log, now: time.Now}
}

// Handle runs one fetch-transform-store cycle. Per-symbol fetch and
// store failures are logged and skipped; a rejected API credential
// aborts the whole invocation since every remaining call would fail
// the same way. Symbols are processed in configured order but no
// ordering is guaranteed between their stored objects.
func (h *Handler) Handle(ctx context.Context, event Event) (Report, error) {
	symbols := event.Symbols
	if len(symbols) == 0 {
		symbols = h.cfg.Symbols
	}
	report := Report{Symbols: len(symbols)}

	for _, symbol := range symbols {
		ts := h.now().UTC()
		quote, err := h.source.Quote(ctx, symbol)
		if err != nil {
			if errors.Is(err, finnhub.ErrUnauthorized) {
				h.log.Error().Err(err).Msg("api credential rejected, aborting invocation")
				return report, fmt.Errorf("fetch %s: %w", symbol, err)
			}
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("fetch failed, skipping symbol")
			report.Failed = append(report.Failed, SymbolFailure{Symbol: symbol, Reason: err.Error()})
			continue
		}

		body, err := json.Marshal(record{
			Quote: quote,
			Metadata: metadata{
				Symbol:    symbol,
				Timestamp: ts.Format(time.RFC3339Nano),
				Source:    h.cfg.Source,
			},
		})
		if err != nil {
			report.Failed = append(report.Failed, SymbolFailure{Symbol: symbol, Reason: err.Error()})
			continue
		}

		key := storage.ObjectKey(h.cfg.KeyPrefix, symbol, ts)
		if err := h.store.Put(ctx, key, body, "application/json"); err != nil {
			h.log.Warn().Err(err).Str("symbol", symbol).Str("key", key).Msg("store failed, skipping symbol")
			report.Failed = append(report.Failed, SymbolFailure{Symbol: symbol, Reason: err.Error()})
			continue
		}

		h.log.Info().Str("symbol", symbol).Str("key", key).Msg("stored quote")
		report.Stored = append(report.Stored, key)
	}

	if len(report.Stored) == 0 && len(symbols) > 0 {
		return report, ErrNoSymbolsStored
	}
	return report, nil
}
