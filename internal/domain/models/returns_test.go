package models

import (
	"math"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestReturnsFromCandles(t *testing.T) {
	candles := []Candle{
		{Bucket: day(0), Close: 100},
		{Bucket: day(1), Close: 110},
		{Bucket: day(2), Close: 99},
	}
	s := ReturnsFromCandles("BTC", candles)
	if s.Len() != 2 {
		t.Fatalf("expected 2 returns, got %d", s.Len())
	}
	vals := s.Values()
	if math.Abs(vals[0]-0.10) > 1e-12 {
		t.Fatalf("first return: got %v", vals[0])
	}
	if math.Abs(vals[1]-(-0.10)) > 1e-12 {
		t.Fatalf("second return: got %v", vals[1])
	}
}

func TestReturnsFromCandlesSkipsBadCloses(t *testing.T) {
	candles := []Candle{
		{Bucket: day(0), Close: 100},
		{Bucket: day(1), Close: 0},
		{Bucket: day(2), Close: 120},
	}
	s := ReturnsFromCandles("BTC", candles)
	if s.Len() != 1 {
		t.Fatalf("expected 1 return across the gap, got %d", s.Len())
	}
	if math.Abs(s.Points[0].Return-0.20) > 1e-12 {
		t.Fatalf("return across gap: got %v", s.Points[0].Return)
	}
}

func TestReturnsFromCandlesShort(t *testing.T) {
	if s := ReturnsFromCandles("BTC", []Candle{{Bucket: day(0), Close: 100}}); s.Len() != 0 {
		t.Fatalf("single candle must yield no returns")
	}
}

func TestAlignReturns(t *testing.T) {
	a := ReturnSeries{Symbol: "A", Points: []ReturnPoint{
		{Date: day(0), Return: 0.01},
		{Date: day(1), Return: 0.02},
		{Date: day(2), Return: 0.03},
	}}
	b := ReturnSeries{Symbol: "B", Points: []ReturnPoint{
		{Date: day(1), Return: -0.01},
		{Date: day(2), Return: -0.02},
		{Date: day(3), Return: -0.03},
	}}
	xs, ys := AlignReturns(a, b)
	if len(xs) != 2 || len(ys) != 2 {
		t.Fatalf("expected 2 shared dates, got %d", len(xs))
	}
	if xs[0] != 0.02 || ys[0] != -0.01 {
		t.Fatalf("unexpected aligned values: %v %v", xs, ys)
	}
}

func TestAlignAll(t *testing.T) {
	series := []ReturnSeries{
		{Symbol: "A", Points: []ReturnPoint{{Date: day(0), Return: 1}, {Date: day(1), Return: 2}}},
		{Symbol: "B", Points: []ReturnPoint{{Date: day(1), Return: 3}, {Date: day(2), Return: 4}}},
	}
	rows := AlignAll(series)
	if len(rows) != 2 {
		t.Fatalf("expected one row per series")
	}
	if len(rows[0]) != 1 || rows[0][0] != 2 || rows[1][0] != 3 {
		t.Fatalf("expected single shared date with values 2 and 3, got %v", rows)
	}
}
