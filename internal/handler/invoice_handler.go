package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/models"
	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param nit query string false "Filter by client NIT"
// @Param desde query string false "Issued from (YYYY-MM-DD)"
// @Param hasta query string false "Issued until (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /facturas [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter models.InvoiceFilter
	filter.NITCliente = c.Query("nit")
	filter.Desde = parseDateQuery(c, "desde")
	filter.Hasta = parseDateQuery(c, "hasta")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	invoices, pagination, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /facturas/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// GetByTransaction godoc
// @Summary Get invoice for a transaction
// @Tags Invoices
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Router /transacciones/{id}/factura [get]
func (h *InvoiceHandler) GetByTransaction(c *gin.Context) {
	invoice, err := h.invoices.GetByTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Issue godoc
// @Summary Issue invoice
// @Description Issues a fiscal invoice for a confirmed transaction
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.IssueInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /facturas [post]
func (h *InvoiceHandler) Issue(c *gin.Context) {
	var req service.IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.invoices.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}
