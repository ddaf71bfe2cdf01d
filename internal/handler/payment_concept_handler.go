package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// PaymentConceptHandler exposes payment concept catalog endpoints.
type PaymentConceptHandler struct {
	concepts *service.PaymentConceptService
}

// NewPaymentConceptHandler constructs PaymentConceptHandler.
func NewPaymentConceptHandler(concepts *service.PaymentConceptService) *PaymentConceptHandler {
	return &PaymentConceptHandler{concepts: concepts}
}

// List godoc
// @Summary List payment concepts
// @Tags PaymentConcepts
// @Produce json
// @Param activos query bool false "Only active concepts"
// @Success 200 {object} response.Envelope
// @Router /conceptos-pago [get]
func (h *PaymentConceptHandler) List(c *gin.Context) {
	onlyActive := c.Query("activos") == "true"
	concepts, err := h.concepts.List(c.Request.Context(), onlyActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concepts, nil)
}

// Get godoc
// @Summary Get payment concept
// @Tags PaymentConcepts
// @Produce json
// @Param id path string true "Concept ID"
// @Success 200 {object} response.Envelope
// @Router /conceptos-pago/{id} [get]
func (h *PaymentConceptHandler) Get(c *gin.Context) {
	concept, err := h.concepts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concept, nil)
}

// Create godoc
// @Summary Create payment concept
// @Tags PaymentConcepts
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentConceptRequest true "Concept payload"
// @Success 201 {object} response.Envelope
// @Router /conceptos-pago [post]
func (h *PaymentConceptHandler) Create(c *gin.Context) {
	var req service.CreatePaymentConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	concept, err := h.concepts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, concept)
}

// Update godoc
// @Summary Update payment concept
// @Description Updates name and description. The code is immutable.
// @Tags PaymentConcepts
// @Accept json
// @Produce json
// @Param id path string true "Concept ID"
// @Param payload body service.UpdatePaymentConceptRequest true "Concept payload"
// @Success 200 {object} response.Envelope
// @Router /conceptos-pago/{id} [put]
func (h *PaymentConceptHandler) Update(c *gin.Context) {
	var req service.UpdatePaymentConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	concept, err := h.concepts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concept, nil)
}

// Delete godoc
// @Summary Deactivate payment concept
// @Tags PaymentConcepts
// @Produce json
// @Param id path string true "Concept ID"
// @Success 204
// @Router /conceptos-pago/{id} [delete]
func (h *PaymentConceptHandler) Delete(c *gin.Context) {
	if err := h.concepts.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
