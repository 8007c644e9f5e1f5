package models

import "time"

// ChartEvent records one served series/chart request.
// The publisher picks the wire encoding.
type ChartEvent struct {
	Source    string // "api" | "ws"
	Symbol    string
	Start     time.Time
	End       time.Time
	ShowTrend bool
	Bars      int
	CacheHit  bool
	Degraded  bool
	Duration  time.Duration
	Error     string
	At        time.Time
}
