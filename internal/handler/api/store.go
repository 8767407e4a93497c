package api

import (
	"github.com/labstack/echo/v4"

	"FinCollect/internal/domain/models"
	"FinCollect/internal/usecase"
	xhttp "FinCollect/pkg/http"
	xlogger "FinCollect/pkg/logger"
)

// StoreHandler exposes ledger inspection, clearing and export.
type StoreHandler struct {
	logger   *xlogger.Logger
	store    *usecase.LedgerStore
	exporter *usecase.Exporter
}

func NewStoreHandler(logger *xlogger.Logger, store *usecase.LedgerStore, exporter *usecase.Exporter) *StoreHandler {
	return &StoreHandler{logger: logger, store: store, exporter: exporter}
}

func (h *StoreHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/store")
	g.GET("/health", h.Health)
	g.GET("/ledgers", h.Ledgers)
	g.GET("/ledgers/:market/:symbol", h.Ledger)
	g.DELETE("/ledgers/:market/:symbol", h.Clear)
	g.POST("/ledgers/:market/:symbol/export", h.Export)
}

func (h *StoreHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.HealthCheck())
}

func (h *StoreHandler) Ledgers(c echo.Context) error {
	keys := h.store.Keys()
	rows := make([]models.LedgerInfo, 0, len(keys))
	for _, k := range keys {
		info, ok, err := h.store.Info(k)
		if err != nil {
			h.logger.Error("ledger info failed", xlogger.String("ledger", k.String()), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		if ok {
			rows = append(rows, info)
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *StoreHandler) Ledger(c echo.Context) error {
	key, verr := readLedgerKey(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	info, ok, err := h.store.Info(key)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no ledger for %s", key))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *StoreHandler) Clear(c echo.Context) error {
	key, verr := readLedgerKey(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.store.Clear(c.Request().Context(), key); err != nil {
		h.logger.Error("ledger clear failed", xlogger.String("ledger", key.String()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *StoreHandler) Export(c echo.Context) error {
	key, verr := readLedgerKey(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.exporter.ExportAll(c.Request().Context(), key)
	if err != nil {
		h.logger.Error("export failed", xlogger.String("ledger", key.String()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func readLedgerKey(c echo.Context) (models.LedgerKey, interface{}) {
	p := &models.LedgerPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, p); verr != nil {
		return models.LedgerKey{}, verr
	}
	return models.LedgerKey{Market: models.MarketKind(p.Market), Symbol: p.Symbol}, nil
}
