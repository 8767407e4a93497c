package models

import "errors"

var (
	// ErrUnknownMarket marks a calendar misconfiguration; fatal when constructing a scheduler.
	ErrUnknownMarket = errors.New("unknown market kind")

	ErrNoSymbol       = errors.New("no target symbol set")
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrSymbolLocked   = errors.New("cannot change symbol while scheduler is running")
	ErrClosed         = errors.New("scheduler closed")

	// ErrInvalidPayload rejects a record whose payload is not a JSON document.
	ErrInvalidPayload = errors.New("payload is not valid JSON")

	// ErrFetch wraps failures reported by the upstream fetcher.
	ErrFetch = errors.New("fetch failed")

	ErrSerialization = errors.New("export serialization failure")
	ErrSink          = errors.New("export sink failure")
	ErrEmptyLedger   = errors.New("ledger is empty")
)
