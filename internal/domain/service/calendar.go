package service

import (
	"time"

	"FinCollect/internal/domain/models"
)

// MarketCalendar answers whether a market is trading at a given instant.
type MarketCalendar interface {
	Validate(kind models.MarketKind) error
	SessionAt(kind models.MarketKind, at time.Time) (models.TradingSession, error)
}
