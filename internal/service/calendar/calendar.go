// Package calendar answers whether a market is trading at a given instant.
//
// Equity sessions are evaluated in the exchange's fixed UTC offset, never the
// caller's zone. Window bounds are open-inclusive and close-exclusive.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"FinCollect/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Config describes an equity exchange day. Times are "HH:MM" exchange-local.
type Config struct {
	UTCOffset      time.Duration
	PreOpen        string
	MorningOpen    string
	MorningClose   string
	AfternoonOpen  string
	AfternoonClose string
	Weekend        []string
	Holidays       []string
}

// DefaultConfig is the Hong Kong exchange day.
func DefaultConfig() Config {
	return Config{
		UTCOffset:      8 * time.Hour,
		PreOpen:        "09:00",
		MorningOpen:    "09:30",
		MorningClose:   "12:00",
		AfternoonOpen:  "13:00",
		AfternoonClose: "16:00",
		Weekend:        []string{"saturday", "sunday"},
	}
}

type window struct {
	open, close time.Duration // offsets from exchange-local midnight
}

// Calendar is immutable after New; SessionAt has no hidden state.
type Calendar struct {
	loc       *time.Location
	preOpen   time.Duration
	morning   window
	afternoon window
	weekend   map[time.Weekday]bool
	holidays  map[string]bool
}

// New validates cfg and builds a Calendar.
func New(cfg Config) (*Calendar, error) {
	pre, err := parseClock(cfg.PreOpen)
	if err != nil {
		return nil, fmt.Errorf("pre_open: %w", err)
	}
	var bounds [4]time.Duration
	for i, s := range []string{cfg.MorningOpen, cfg.MorningClose, cfg.AfternoonOpen, cfg.AfternoonClose} {
		if bounds[i], err = parseClock(s); err != nil {
			return nil, fmt.Errorf("session bound %q: %w", s, err)
		}
	}
	if pre > bounds[0] {
		return nil, fmt.Errorf("pre_open %s is after morning open %s", cfg.PreOpen, cfg.MorningOpen)
	}
	for i := 1; i < len(bounds); i++ {
		// lunch gap may be empty, windows may not
		if bounds[i] < bounds[i-1] || (i%2 == 1 && bounds[i] == bounds[i-1]) {
			return nil, fmt.Errorf("session bounds must be increasing: %s-%s, %s-%s",
				cfg.MorningOpen, cfg.MorningClose, cfg.AfternoonOpen, cfg.AfternoonClose)
		}
	}

	weekend := make(map[time.Weekday]bool, len(cfg.Weekend))
	for _, name := range cfg.Weekend {
		wd, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		weekend[wd] = true
	}
	if len(weekend) == 7 {
		return nil, fmt.Errorf("weekend cannot cover every day")
	}

	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.Parse(dateLayout, strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		holidays[d.Format(dateLayout)] = true
	}

	offset := int(cfg.UTCOffset / time.Second)
	return &Calendar{
		loc:       time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", offset/3600, abs(offset%3600)/60), offset),
		preOpen:   pre,
		morning:   window{open: bounds[0], close: bounds[1]},
		afternoon: window{open: bounds[2], close: bounds[3]},
		weekend:   weekend,
		holidays:  holidays,
	}, nil
}

// MustDefault returns the default calendar; the default config is always valid.
func MustDefault() *Calendar {
	c, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the exchange's fixed zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Validate reports ErrUnknownMarket for kinds this calendar cannot answer.
func (c *Calendar) Validate(kind models.MarketKind) error {
	switch kind {
	case models.MarketCrypto, models.MarketEquity:
		return nil
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownMarket, kind)
	}
}

// SessionAt returns the session state of kind at instant at.
func (c *Calendar) SessionAt(kind models.MarketKind, at time.Time) (models.TradingSession, error) {
	switch kind {
	case models.MarketCrypto:
		return models.TradingSession{IsOpen: true, Kind: models.SessionAlwaysOpen}, nil
	case models.MarketEquity:
		return c.equitySession(at), nil
	default:
		return models.TradingSession{}, fmt.Errorf("%w: %q", models.ErrUnknownMarket, kind)
	}
}

func (c *Calendar) equitySession(at time.Time) models.TradingSession {
	local := at.In(c.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	tod := local.Sub(day)

	if !c.isTradingDay(day) {
		return closedUntil(models.SessionClosed, c.nextTradingDay(day).Add(c.morning.open))
	}

	switch {
	case tod < c.morning.open:
		kind := models.SessionClosed
		if tod >= c.preOpen {
			kind = models.SessionPreOpen
		}
		return closedUntil(kind, day.Add(c.morning.open))
	case tod < c.morning.close:
		return openUntil(models.SessionMorning, day.Add(c.morning.close))
	case tod < c.afternoon.open:
		return closedUntil(models.SessionClosed, day.Add(c.afternoon.open))
	case tod < c.afternoon.close:
		return openUntil(models.SessionAfternoon, day.Add(c.afternoon.close))
	default:
		return closedUntil(models.SessionClosed, c.nextTradingDay(day).Add(c.morning.open))
	}
}

func (c *Calendar) isTradingDay(day time.Time) bool {
	return !c.weekend[day.Weekday()] && !c.holidays[day.Format(dateLayout)]
}

func (c *Calendar) nextTradingDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	// bounded by a year of holidays plus a week of weekends
	for i := 0; i < 373 && !c.isTradingDay(next); i++ {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func openUntil(kind models.SessionKind, close time.Time) models.TradingSession {
	return models.TradingSession{IsOpen: true, Kind: kind, NextClose: &close}
}

func closedUntil(kind models.SessionKind, open time.Time) models.TradingSession {
	return models.TradingSession{IsOpen: false, Kind: kind, NextOpen: &open}
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM: %w", err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name || strings.ToLower(d.String()[:3]) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
