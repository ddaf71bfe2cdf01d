package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/models"
	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// TransactionHandler exposes payment transaction endpoints.
type TransactionHandler struct {
	transactions *service.TransactionService
}

// NewTransactionHandler constructs TransactionHandler.
func NewTransactionHandler(transactions *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// List godoc
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Param estudiante_id query string false "Filter by student"
// @Param programa_id query string false "Filter by program"
// @Param estado query string false "Filter by state"
// @Param forma_pago query string false "Filter by payment method"
// @Param desde query string false "Paid from (YYYY-MM-DD)"
// @Param hasta query string false "Paid until (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transacciones [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var filter models.TransactionFilter
	filter.EstudianteID = c.Query("estudiante_id")
	filter.ProgramaID = c.Query("programa_id")
	filter.Estado = models.TransactionState(c.Query("estado"))
	filter.FormaPago = models.PaymentMethod(c.Query("forma_pago"))
	filter.Desde = parseDateQuery(c, "desde")
	filter.Hasta = parseDateQuery(c, "hasta")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	transactions, pagination, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Get godoc
// @Summary Get transaction detail
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Router /transacciones/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	transaction, err := h.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}

// GetByNumber godoc
// @Summary Get transaction by number
// @Tags Transactions
// @Produce json
// @Param numero path string true "Transaction number (T-YYYY-NNNNNN)"
// @Success 200 {object} response.Envelope
// @Router /transacciones/numero/{numero} [get]
func (h *TransactionHandler) GetByNumber(c *gin.Context) {
	transaction, err := h.transactions.GetByNumber(c.Request.Context(), c.Param("numero"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}

// RegisterEnrollmentPayment godoc
// @Summary Register enrollment payment
// @Description Pays the matricula and inscripcion of an enrollment in one transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param payload body service.RegisterEnrollmentPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /transacciones/pago-inscripcion [post]
func (h *TransactionHandler) RegisterEnrollmentPayment(c *gin.Context) {
	var req service.RegisterEnrollmentPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	transaction, err := h.transactions.RegisterEnrollmentPayment(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transaction)
}

// RegisterPayment godoc
// @Summary Register free-form payment
// @Description Registers a payment with arbitrary concept lines
// @Tags Transactions
// @Accept json
// @Produce json
// @Param payload body service.RegisterPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /transacciones [post]
func (h *TransactionHandler) RegisterPayment(c *gin.Context) {
	var req service.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	transaction, err := h.transactions.RegisterPayment(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transaction)
}

// Confirm godoc
// @Summary Confirm transaction
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Router /transacciones/{id}/confirmar [post]
func (h *TransactionHandler) Confirm(c *gin.Context) {
	transaction, err := h.transactions.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}

// Annul godoc
// @Summary Annul transaction
// @Description Annuls the transaction and reverses its ledger entry
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param payload body service.AnnulTransactionRequest true "Annulment reason"
// @Success 200 {object} response.Envelope
// @Router /transacciones/{id}/anular [post]
func (h *TransactionHandler) Annul(c *gin.Context) {
	var req service.AnnulTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	transaction, err := h.transactions.Annul(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}

// Receipt godoc
// @Summary Download payment receipt
// @Description Renders the transaction receipt as PDF
// @Tags Transactions
// @Produce application/pdf
// @Param id path string true "Transaction ID"
// @Success 200 {file} binary
// @Router /transacciones/{id}/recibo [get]
func (h *TransactionHandler) Receipt(c *gin.Context) {
	data, transaction, err := h.transactions.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=recibo-%s.pdf", transaction.NumeroTransaccion))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Balance godoc
// @Summary Enrollment balance
// @Description Returns cost, paid amount and outstanding balance for an enrollment
// @Tags Transactions
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /inscripciones/{id}/saldo [get]
func (h *TransactionHandler) Balance(c *gin.Context) {
	balance, err := h.transactions.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Stats godoc
// @Summary Transaction statistics
// @Tags Transactions
// @Produce json
// @Param anio query int false "Year"
// @Success 200 {object} response.Envelope
// @Router /transacciones/estadisticas [get]
func (h *TransactionHandler) Stats(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("anio"))
	stats, err := h.transactions.Stats(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
