package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// DocumentHandler exposes supporting document endpoints. Files arrive as
// multipart uploads and leave through signed download tokens.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload godoc
// @Summary Upload supporting document
// @Description Attaches a file (transfer voucher, deposit slip) to a transaction
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param transaccion_id formData string true "Transaction ID"
// @Param tipo_documento formData string false "Document type"
// @Param observaciones formData string false "Notes"
// @Param archivo formData file true "File"
// @Success 201 {object} response.Envelope
// @Router /documentos [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "archivo is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), service.UploadDocumentRequest{
		TransaccionID: c.PostForm("transaccion_id"),
		TipoDocumento: c.PostForm("tipo_documento"),
		Observaciones: c.PostForm("observaciones"),
		Filename:      fileHeader.Filename,
		Data:          data,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// ListByTransaction godoc
// @Summary List documents of a transaction
// @Tags Documents
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Router /transacciones/{id}/documentos [get]
func (h *DocumentHandler) ListByTransaction(c *gin.Context) {
	docs, err := h.documents.ListByTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// DownloadURL godoc
// @Summary Get signed download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documentos/{id}/url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	download, err := h.documents.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// Download godoc
// @Summary Download document
// @Description Serves the file referenced by a signed token
// @Tags Documents
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documentos/descargar/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, err := h.documents.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	path, err := h.documents.OpenFile(doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, doc.NombreOriginal)
}

// Delete godoc
// @Summary Delete document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Router /documentos/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
