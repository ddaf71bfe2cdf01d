package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/models"
	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// CashMovementHandler exposes the cash ledger endpoints.
type CashMovementHandler struct {
	movements *service.CashMovementService
}

// NewCashMovementHandler constructs CashMovementHandler.
func NewCashMovementHandler(movements *service.CashMovementService) *CashMovementHandler {
	return &CashMovementHandler{movements: movements}
}

// List godoc
// @Summary List cash movements
// @Tags CashMovements
// @Produce json
// @Param tipo query string false "INGRESO or EGRESO"
// @Param forma_pago query string false "Filter by payment method"
// @Param desde query string false "From (YYYY-MM-DD)"
// @Param hasta query string false "Until (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /movimientos-caja [get]
func (h *CashMovementHandler) List(c *gin.Context) {
	var filter models.CashMovementFilter
	filter.Tipo = models.CashMovementType(c.Query("tipo"))
	filter.FormaPago = models.PaymentMethod(c.Query("forma_pago"))
	filter.Desde = parseDateQuery(c, "desde")
	filter.Hasta = parseDateQuery(c, "hasta")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	movements, pagination, err := h.movements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, movements, pagination)
}

// Register godoc
// @Summary Register manual cash movement
// @Description Records an income or expense not tied to a transaction
// @Tags CashMovements
// @Accept json
// @Produce json
// @Param payload body service.CreateCashMovementRequest true "Movement payload"
// @Success 201 {object} response.Envelope
// @Router /movimientos-caja [post]
func (h *CashMovementHandler) Register(c *gin.Context) {
	var req service.CreateCashMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	movement, err := h.movements.Register(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, movement)
}

// DailyClose godoc
// @Summary Daily cash close
// @Description Sums inflows and outflows of a calendar day
// @Tags CashMovements
// @Produce json
// @Param fecha query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /movimientos-caja/cierre-diario [get]
func (h *CashMovementHandler) DailyClose(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("fecha"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "fecha must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	totals, err := h.movements.DailyClose(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}

// PeriodTotals godoc
// @Summary Cash totals over a period
// @Tags CashMovements
// @Produce json
// @Param desde query string true "From (YYYY-MM-DD)"
// @Param hasta query string true "Until (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /movimientos-caja/totales [get]
func (h *CashMovementHandler) PeriodTotals(c *gin.Context) {
	from := parseDateQuery(c, "desde")
	to := parseDateQuery(c, "hasta")
	if from == nil || to == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "desde and hasta are required as YYYY-MM-DD"))
		return
	}
	end := to.Add(24*time.Hour - time.Nanosecond)
	totals, err := h.movements.PeriodTotals(c.Request.Context(), *from, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}
