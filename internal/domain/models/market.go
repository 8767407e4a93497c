package models

import (
	"fmt"
	"strings"
	"time"
)

// MarketKind selects which trading calendar governs a symbol.
type MarketKind string

const (
	MarketCrypto MarketKind = "crypto"
	MarketEquity MarketKind = "equity"
)

// ParseMarketKind normalizes raw input into a known MarketKind.
func ParseMarketKind(s string) (MarketKind, error) {
	switch MarketKind(strings.ToLower(strings.TrimSpace(s))) {
	case MarketCrypto:
		return MarketCrypto, nil
	case MarketEquity:
		return MarketEquity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMarket, s)
	}
}

// SessionKind is the phase of the trading day an instant falls into.
type SessionKind string

const (
	SessionPreOpen    SessionKind = "pre_open"
	SessionMorning    SessionKind = "morning"
	SessionAfternoon  SessionKind = "afternoon"
	SessionClosed     SessionKind = "closed"
	SessionAlwaysOpen SessionKind = "always_open"
)

// TradingSession is derived from (market, instant) and never persisted.
// A closed session never carries NextClose; an always-open one carries neither bound.
type TradingSession struct {
	IsOpen    bool        `json:"is_open"`
	Kind      SessionKind `json:"session_kind"`
	NextOpen  *time.Time  `json:"next_open,omitempty"`
	NextClose *time.Time  `json:"next_close,omitempty"`
}
