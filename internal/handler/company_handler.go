package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// CompanyHandler exposes the institution identity endpoints.
type CompanyHandler struct {
	company *service.CompanyService
}

// NewCompanyHandler constructs CompanyHandler.
func NewCompanyHandler(company *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{company: company}
}

// Get godoc
// @Summary Get institution data
// @Tags Company
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /empresa [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.company.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}

// Update godoc
// @Summary Update institution data
// @Tags Company
// @Accept json
// @Produce json
// @Param payload body service.UpdateCompanyRequest true "Company payload"
// @Success 200 {object} response.Envelope
// @Router /empresa [put]
func (h *CompanyHandler) Update(c *gin.Context) {
	var req service.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	company, err := h.company.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}
