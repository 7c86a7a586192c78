package models

import "time"

// SignalBatch is the consolidated result of one signal-pipeline run across a
// symbol set. Errors maps symbol -> failure message for symbols whose signal
// could not be generated; the rest of the batch is still usable.
// Note: no transport (json/http) concerns here.
type SignalBatch struct {
	Category  TradeCategory
	Timestamp time.Time
	Signals   []TradingSignal
	Rejected  []TradingSignal // dropped by high-severity bias findings
	Errors    map[string]string
}

// Active returns the non-expired signals at the given time.
func (b *SignalBatch) Active(now time.Time) []TradingSignal {
	out := make([]TradingSignal, 0, len(b.Signals))
	for _, s := range b.Signals {
		if !s.Expired(now) {
			out = append(out, s)
		}
	}
	return out
}
