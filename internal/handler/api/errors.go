package api

import (
	"net/http"

	"FinCollect/internal/domain/models"
	xhttp "FinCollect/pkg/http"
)

var errorRules = []xhttp.ErrorRule{
	{Target: models.ErrNoSymbol, Code: "ERR_NO_SYMBOL", Field: "symbol", Status: http.StatusBadRequest},
	{Target: models.ErrUnknownMarket, Code: "ERR_UNKNOWN_MARKET", Field: "market", Status: http.StatusBadRequest},
	{Target: models.ErrAlreadyRunning, Code: "ERR_ALREADY_RUNNING", Status: http.StatusConflict},
	{Target: models.ErrClosed, Code: "ERR_CLOSED", Status: http.StatusServiceUnavailable},
	{Target: models.ErrSymbolLocked, Code: "ERR_SYMBOL_LOCKED", Field: "symbol", Status: http.StatusConflict},
	{Target: models.ErrEmptyLedger, Code: "ERR_EMPTY_LEDGER", Status: http.StatusNotFound},
	{Target: models.ErrSerialization, Code: "ERR_SERIALIZATION", Status: http.StatusInternalServerError},
	{Target: models.ErrSink, Code: "ERR_SINK", Status: http.StatusInternalServerError},
}

func toAppError(err error) *xhttp.AppError {
	return xhttp.MapError(err, errorRules)
}
