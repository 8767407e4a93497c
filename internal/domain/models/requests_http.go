package models

// Requests for collector admin HTTP endpoints. Defined in domain for consistency and reuse.

type SetSymbolRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol,max=64"`
	Market string `json:"market" default:"equity" validate:"oneof=crypto equity"`
}

type AutoModeRequest struct {
	Enabled bool `json:"enabled"`
}

type LedgerPathRequest struct {
	Market string `param:"market" validate:"oneof=crypto equity"`
	Symbol string `param:"symbol" validate:"required,symbol,max=64"`
}

type SessionRequest struct {
	Market string `query:"market" default:"equity" validate:"oneof=crypto equity"`
	At     string `query:"at"`
}
