package service

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

type documentTransactionRepository interface {
	FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error)
}

// UploadDocumentRequest carries an upload's metadata and content.
type UploadDocumentRequest struct {
	TransaccionID string
	TipoDocumento string
	Filename      string
	Observaciones string
	Data          []byte
}

// DocumentDownload is a signed reference to a stored file.
type DocumentDownload struct {
	DocumentoID string    `json:"documento_id"`
	URL         string    `json:"url"`
	ExpiraEn    time.Time `json:"expira_en"`
}

// DocumentService stores supporting files on disk and their metadata in the
// database. Downloads go through time-limited signed tokens.
type DocumentService struct {
	repo         documentRepository
	transactions documentTransactionRepository
	files        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	maxSize      int64
	allowedExts  map[string]struct{}
	logger       *zap.Logger
}

// NewDocumentService constructs the document service. allowedExtensions are
// lower-case without the leading dot.
func NewDocumentService(repo documentRepository, transactions documentTransactionRepository, files *storage.LocalStorage, signer *storage.SignedURLSigner, maxSize int64, allowedExtensions []string, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = models.MaxDocumentSizeBytes
	}
	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &DocumentService{
		repo:         repo,
		transactions: transactions,
		files:        files,
		signer:       signer,
		maxSize:      maxSize,
		allowedExts:  exts,
		logger:       logger,
	}
}

// Upload validates the file and stores bytes plus metadata. The stored name
// is a UUID so original names never touch the filesystem.
func (s *DocumentService) Upload(ctx context.Context, req UploadDocumentRequest, uploadedBy *string) (*models.Document, error) {
	if req.TransaccionID == "" || req.Filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transaccion_id and file are required")
	}
	if int64(len(req.Data)) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(req.Data)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(req.Filename), "."))
	if ext == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file has no extension")
	}
	if _, ok := s.allowedExts[ext]; len(s.allowedExts) > 0 && !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file extension not allowed")
	}

	if _, err := s.transactions.FindByID(ctx, req.TransaccionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}

	storedName := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	relPath := filepath.Join(req.TransaccionID, storedName)
	if _, err := s.files.Save(relPath, req.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.Document{
		TransaccionID:  req.TransaccionID,
		TipoDocumento:  req.TipoDocumento,
		NombreOriginal: filepath.Base(req.Filename),
		NombreArchivo:  storedName,
		Extension:      ext,
		RutaArchivo:    relPath,
		TamanoBytes:    int64(len(req.Data)),
		Observaciones:  req.Observaciones,
		SubidoPor:      uploadedBy,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if removeErr := s.files.Delete(relPath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned file", zap.String("ruta", relPath), zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document metadata")
	}
	s.logger.Info("document uploaded",
		zap.String("documento_id", doc.ID),
		zap.String("transaccion_id", doc.TransaccionID),
		zap.Int64("tamano_bytes", doc.TamanoBytes))
	return doc, nil
}

// ListByTransaction returns the documents attached to a transaction.
func (s *DocumentService) ListByTransaction(ctx context.Context, transactionID string) ([]models.Document, error) {
	docs, err := s.repo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns document metadata by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// DownloadURL issues a signed, expiring token for the stored file.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (*DocumentDownload, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.RutaArchivo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &DocumentDownload{
		DocumentoID: doc.ID,
		URL:         fmt.Sprintf("/documentos/descargar/%s", token),
		ExpiraEn:    expiresAt,
	}, nil
}

// Resolve validates a signed token and returns the metadata it references.
func (s *DocumentService) Resolve(ctx context.Context, token string) (*models.Document, error) {
	resourceID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	doc, err := s.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if doc.RutaArchivo != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return doc, nil
}

// OpenFile returns a read handle for a document's stored bytes.
func (s *DocumentService) OpenFile(doc *models.Document) (string, error) {
	return s.files.Path(doc.RutaArchivo), nil
}

// Delete removes both the metadata row and the stored file.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.files.Delete(doc.RutaArchivo); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("ruta", doc.RutaArchivo), zap.Error(err))
	}
	return nil
}
