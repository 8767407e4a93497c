package api

import (
	"github.com/labstack/echo/v4"

	"FinCollect/internal/domain/models"
	"FinCollect/internal/usecase"
	xhttp "FinCollect/pkg/http"
	xlogger "FinCollect/pkg/logger"
)

// CollectorHandler exposes the collection scheduler controls.
type CollectorHandler struct {
	logger *xlogger.Logger
	sched  *usecase.CollectionScheduler
}

func NewCollectorHandler(logger *xlogger.Logger, sched *usecase.CollectionScheduler) *CollectorHandler {
	return &CollectorHandler{logger: logger, sched: sched}
}

func (h *CollectorHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/collector")
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.PUT("/auto-mode", h.AutoMode)
	g.PUT("/symbol", h.SetSymbol)
	g.GET("/status", h.Status)
	g.GET("/stats", h.Stats)
	g.DELETE("/stats", h.ResetStats)
}

func (h *CollectorHandler) Start(c echo.Context) error {
	if err := h.sched.Start(c.Request().Context()); err != nil {
		h.logger.Warn("collector start rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.sched.Status())
}

func (h *CollectorHandler) Stop(c echo.Context) error {
	h.sched.Stop()
	return xhttp.SuccessResponse(c, h.sched.Status())
}

func (h *CollectorHandler) AutoMode(c echo.Context) error {
	req := &models.AutoModeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.sched.SetAutoMode(req.Enabled)
	return xhttp.SuccessResponse(c, h.sched.Status())
}

func (h *CollectorHandler) SetSymbol(c echo.Context) error {
	req := &models.SetSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	market, err := models.ParseMarketKind(req.Market)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if err := h.sched.SetSymbol(req.Symbol, market); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.sched.Status())
}

func (h *CollectorHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sched.Status())
}

func (h *CollectorHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sched.Statistics())
}

func (h *CollectorHandler) ResetStats(c echo.Context) error {
	h.sched.ResetStatistics()
	return xhttp.SuccessResponse(c, h.sched.Statistics())
}
