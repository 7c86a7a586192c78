package models

import "time"

// Candle represents an OHLCV record supplied by the price-history store.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
