package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// ReportHandler exposes financial report endpoints, both synchronous views
// and asynchronous CSV/PDF exports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Balance godoc
// @Summary Balance report
// @Description Per-enrollment cost, paid and outstanding amounts
// @Tags Reports
// @Produce json
// @Param programa_id query string false "Filter by program"
// @Success 200 {object} response.Envelope
// @Router /reportes/saldos [get]
func (h *ReportHandler) Balance(c *gin.Context) {
	report, err := h.reports.Balance(c.Request.Context(), c.Query("programa_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Delinquency godoc
// @Summary Delinquency report
// @Description Enrollments with outstanding balance past the tolerance window
// @Tags Reports
// @Produce json
// @Param dias_tolerancia query int false "Days without payment, defaults to the configured value"
// @Success 200 {object} response.Envelope
// @Router /reportes/morosidad [get]
func (h *ReportHandler) Delinquency(c *gin.Context) {
	tolerance, _ := strconv.Atoi(c.Query("dias_tolerancia"))
	report, err := h.reports.Delinquency(c.Request.Context(), tolerance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// TopPayers godoc
// @Summary Top payers report
// @Tags Reports
// @Produce json
// @Param limite query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /reportes/mejores-pagadores [get]
func (h *ReportHandler) TopPayers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limite"))
	rows, err := h.reports.TopPayers(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Income godoc
// @Summary Monthly income history
// @Tags Reports
// @Produce json
// @Param meses query int false "Months back"
// @Success 200 {object} response.Envelope
// @Router /reportes/ingresos [get]
func (h *ReportHandler) Income(c *gin.Context) {
	months, _ := strconv.Atoi(c.Query("meses"))
	report, err := h.reports.IncomeHistory(c.Request.Context(), months)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Daily godoc
// @Summary Payments of the day
// @Description Confirmed payments received on a calendar day
// @Tags Reports
// @Produce json
// @Param fecha query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /reportes/pagos-dia [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("fecha"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "fecha must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	rows, err := h.reports.PaymentsOfDay(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export report
// @Description Queues an asynchronous CSV or PDF export and returns the job ID
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.ExportReportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /reportes/exportar [post]
func (h *ReportHandler) Export(c *gin.Context) {
	var req service.ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.reports.Export(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Export job status
// @Description Returns the job state and a signed download URL once completed
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reportes/trabajos/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	status, err := h.reports.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download exported report
// @Description Serves the artifact referenced by a signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reportes/descargar/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	path, job, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("reporte-%s.%s", job.TipoReporte, job.Formato)
	c.FileAttachment(path, filename)
}
