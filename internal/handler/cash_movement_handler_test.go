package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCashMovementHandlerDailyCloseRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCashMovementHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/movimientos-caja/cierre-diario?fecha=15-03-2026", nil)

	handler.DailyClose(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCashMovementHandlerPeriodTotalsRequiresRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCashMovementHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/movimientos-caja/totales?desde=2026-03-01", nil)

	handler.PeriodTotals(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
