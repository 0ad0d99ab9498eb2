package storage

import (
	"fmt"
	"path"
	"time"
)

// ObjectKey builds the storage key for one (symbol, invocation) pair:
//
//	[prefix/]SYMBOL/YYYY/MM/DD/HH/<RFC3339Nano>.json
//
// The hour-bucketed layout keeps listings cheap; the nanosecond
// timestamp in the leaf makes keys collision-free across invocations
// and symbols even when ticks overlap.
func ObjectKey(prefix, symbol string, ts time.Time) string {
	ts = ts.UTC()
	key := path.Join(
		symbol,
		fmt.Sprintf("%04d/%02d/%02d/%02d", ts.Year(), ts.Month(), ts.Day(), ts.Hour()),
		ts.Format(time.RFC3339Nano)+".json",
	)
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	return key
}
