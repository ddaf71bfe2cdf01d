package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// DocumentRepository manages supporting document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO documentos_respaldo (id, transaccion_id, tipo_documento, nombre_original, nombre_archivo,
        extension, ruta_archivo, tamano_bytes, observaciones, subido_por, created_at)
        VALUES (:id, :transaccion_id, :tipo_documento, :nombre_original, :nombre_archivo,
        :extension, :ruta_archivo, :tamano_bytes, :observaciones, :subido_por, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID fetches document metadata by ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, transaccion_id, tipo_documento, nombre_original, nombre_archivo,
        extension, ruta_archivo, tamano_bytes, observaciones, subido_por, created_at
        FROM documentos_respaldo WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByTransaction returns all documents attached to a transaction.
func (r *DocumentRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.Document, error) {
	const query = `SELECT id, transaccion_id, tipo_documento, nombre_original, nombre_archivo,
        extension, ruta_archivo, tamano_bytes, observaciones, subido_por, created_at
        FROM documentos_respaldo WHERE transaccion_id = $1 ORDER BY created_at DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, transactionID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes document metadata. The caller deletes the stored file.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documentos_respaldo WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
