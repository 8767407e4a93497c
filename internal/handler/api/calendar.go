package api

import (
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"FinCollect/internal/domain/models"
	dservice "FinCollect/internal/domain/service"
	xhttp "FinCollect/pkg/http"
	"FinCollect/pkg/util"
)

// CalendarHandler answers trading session queries.
type CalendarHandler struct {
	cal   dservice.MarketCalendar
	clock clockwork.Clock
}

func NewCalendarHandler(cal dservice.MarketCalendar, clock clockwork.Clock) *CalendarHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CalendarHandler{cal: cal, clock: clock}
}

func (h *CalendarHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/calendar/session", h.Session)
}

// Session evaluates the market's session at ?at= (RFC3339 or unix), default now.
func (h *CalendarHandler) Session(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at := h.clock.Now()
	if req.At != "" {
		t, ok := util.ParseTime(req.At)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_INVALID_TIME",
				Field:   "at",
				Message: "at must be RFC3339 or unix seconds",
			}})
		}
		at = t
	}
	session, err := h.cal.SessionAt(models.MarketKind(req.Market), at)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, session)
}
