package main

import (
	"time"
)

var (
	_ Clocker       = (*Clock)(nil)
	_ TickerClocker = (*TickClock)(nil)
)

// Clocker gives the current time. Services read it for book and user
// timestamps so tests can freeze or advance it.
type Clocker interface {
	Now() time.Time
}

// TickerClocker adds tickers to Clocker. It satisfies zapcore.Clock,
// which lets log entries and records share the same time source.
type TickerClocker interface {
	Clocker
	NewTicker(time.Duration) *time.Ticker
}

// Clock reads the system time in a fixed location.
type Clock struct {
	loc *time.Location
}

// NewClock returns a Clock in UTC for production and in the
// local timezone otherwise.
func NewClock(isProd bool) *Clock {
	loc := time.Local
	if isProd {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.loc)
}

// TickClock wraps any Clocker with real tickers.
type TickClock struct {
	Clocker
}

func NewTickClock(ck Clocker) *TickClock {
	return &TickClock{Clocker: ck}
}

func (tc *TickClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// stamp is the time recorded on stored books and users: UTC with
// second precision, so every backend returns the value it was given.
func stamp(ck Clocker) time.Time {
	return ck.Now().UTC().Truncate(time.Second)
}
