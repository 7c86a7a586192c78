package repository

// Timeframe is the candle resolution stored per row.
type Timeframe string

const (
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
	TF1w Timeframe = "1w"
)

// Valid reports whether tf is a supported resolution.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TF1h, TF1d, TF1w:
		return true
	}
	return false
}

// DefaultTimeframe is the resolution used for allocation and risk analysis.
func DefaultTimeframe() Timeframe { return TF1d }

// NormalizeTimeframe maps a raw query string onto a supported timeframe,
// falling back to the daily default.
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); tf.Valid() {
		return tf
	}
	return DefaultTimeframe()
}
