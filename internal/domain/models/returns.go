package models

import (
	"sort"
	"time"
)

// ReturnPoint is one dated periodic return observation.
type ReturnPoint struct {
	Date   time.Time
	Return float64
}

// ReturnSeries is a time-ordered sequence of periodic returns for one symbol.
// No duplicate dates; gaps are simply fewer observations.
type ReturnSeries struct {
	Symbol string
	Points []ReturnPoint
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int { return len(s.Points) }

// Values returns the raw return values in time order.
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Return
	}
	return out
}

// ReturnsFromCandles derives a periodic return series from close prices.
// Candles with non-positive closes are skipped rather than producing a
// degenerate observation.
func ReturnsFromCandles(symbol string, candles []Candle) ReturnSeries {
	s := ReturnSeries{Symbol: symbol}
	if len(candles) < 2 {
		return s
	}
	prev := candles[0].Close
	prevDate := candles[0].Bucket
	for _, c := range candles[1:] {
		if prev > 0 && c.Close > 0 && c.Bucket.After(prevDate) {
			s.Points = append(s.Points, ReturnPoint{
				Date:   c.Bucket,
				Return: c.Close/prev - 1,
			})
			prevDate = c.Bucket
		}
		if c.Close > 0 {
			prev = c.Close
		}
	}
	return s
}

// AlignReturns pairs two series on shared dates and returns the aligned
// values. Dates present in only one series are dropped.
func AlignReturns(a, b ReturnSeries) ([]float64, []float64) {
	byDate := make(map[time.Time]float64, len(b.Points))
	for _, p := range b.Points {
		byDate[p.Date] = p.Return
	}
	var xs, ys []float64
	for _, p := range a.Points {
		if v, ok := byDate[p.Date]; ok {
			xs = append(xs, p.Return)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// AlignAll builds a date-aligned return matrix for the given series in the
// given symbol order. Only dates present in every series are kept, in
// chronological order. Row i of the result holds the returns of series i.
func AlignAll(series []ReturnSeries) [][]float64 {
	if len(series) == 0 {
		return nil
	}
	counts := make(map[time.Time]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[p.Date]++
		}
	}
	var shared []time.Time
	for d, n := range counts {
		if n == len(series) {
			shared = append(shared, d)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	rows := make([][]float64, len(series))
	for i, s := range series {
		byDate := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			byDate[p.Date] = p.Return
		}
		row := make([]float64, len(shared))
		for j, d := range shared {
			row[j] = byDate[d]
		}
		rows[i] = row
	}
	return rows
}
