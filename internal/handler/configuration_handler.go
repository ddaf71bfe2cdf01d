package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// ConfigurationHandler exposes business-rule setting endpoints.
type ConfigurationHandler struct {
	configurations *service.ConfigurationService
}

// NewConfigurationHandler constructs ConfigurationHandler.
func NewConfigurationHandler(configurations *service.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{configurations: configurations}
}

// List godoc
// @Summary List configuration entries
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /configuracion [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	configs, err := h.configurations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Get godoc
// @Summary Get configuration entry
// @Tags Configuration
// @Produce json
// @Param clave path string true "Configuration key"
// @Success 200 {object} response.Envelope
// @Router /configuracion/{clave} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	config, err := h.configurations.Get(c.Request.Context(), c.Param("clave"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Update godoc
// @Summary Update configuration value
// @Description Rejects entries marked not editable and values that do not match the declared data type
// @Tags Configuration
// @Accept json
// @Produce json
// @Param clave path string true "Configuration key"
// @Param payload body service.UpdateConfigurationRequest true "New value"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /configuracion/{clave} [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req service.UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	config, err := h.configurations.Update(c.Request.Context(), c.Param("clave"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}
