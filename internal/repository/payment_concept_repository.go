package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// PaymentConceptRepository manages the payment concept catalog.
type PaymentConceptRepository struct {
	db *sqlx.DB
}

// NewPaymentConceptRepository constructs the repository.
func NewPaymentConceptRepository(db *sqlx.DB) *PaymentConceptRepository {
	return &PaymentConceptRepository{db: db}
}

// List returns catalog entries, optionally only active ones.
func (r *PaymentConceptRepository) List(ctx context.Context, onlyActive bool) ([]models.PaymentConcept, error) {
	query := `SELECT id, codigo, nombre, descripcion, activo, created_at, updated_at FROM conceptos_pago`
	if onlyActive {
		query += " WHERE activo"
	}
	query += " ORDER BY codigo"
	var concepts []models.PaymentConcept
	if err := r.db.SelectContext(ctx, &concepts, query); err != nil {
		return nil, fmt.Errorf("list payment concepts: %w", err)
	}
	return concepts, nil
}

// FindByID fetches a concept by ID.
func (r *PaymentConceptRepository) FindByID(ctx context.Context, id string) (*models.PaymentConcept, error) {
	const query = `SELECT id, codigo, nombre, descripcion, activo, created_at, updated_at FROM conceptos_pago WHERE id = $1`
	var concept models.PaymentConcept
	if err := r.db.GetContext(ctx, &concept, query, id); err != nil {
		return nil, err
	}
	return &concept, nil
}

// FindByCodigo fetches a concept by its stable code.
func (r *PaymentConceptRepository) FindByCodigo(ctx context.Context, codigo string) (*models.PaymentConcept, error) {
	const query = `SELECT id, codigo, nombre, descripcion, activo, created_at, updated_at FROM conceptos_pago WHERE codigo = $1`
	var concept models.PaymentConcept
	if err := r.db.GetContext(ctx, &concept, query, codigo); err != nil {
		return nil, err
	}
	return &concept, nil
}

// ExistsByCodigo checks code uniqueness, optionally excluding an ID.
func (r *PaymentConceptRepository) ExistsByCodigo(ctx context.Context, codigo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM conceptos_pago WHERE codigo = $1"
	args := []interface{}{codigo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check concept code: %w", err)
	}
	return true, nil
}

// Create inserts a catalog entry.
func (r *PaymentConceptRepository) Create(ctx context.Context, concept *models.PaymentConcept) error {
	if concept.ID == "" {
		concept.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	concept.CreatedAt = now
	concept.UpdatedAt = now
	const query = `INSERT INTO conceptos_pago (id, codigo, nombre, descripcion, activo, created_at, updated_at)
        VALUES (:id, :codigo, :nombre, :descripcion, :activo, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, concept); err != nil {
		return fmt.Errorf("create payment concept: %w", err)
	}
	return nil
}

// Update modifies a catalog entry.
func (r *PaymentConceptRepository) Update(ctx context.Context, concept *models.PaymentConcept) error {
	concept.UpdatedAt = time.Now().UTC()
	const query = `UPDATE conceptos_pago SET codigo = :codigo, nombre = :nombre, descripcion = :descripcion,
        activo = :activo, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, concept); err != nil {
		return fmt.Errorf("update payment concept: %w", err)
	}
	return nil
}

// InUse reports whether any transaction detail references the concept.
func (r *PaymentConceptRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM detalles_transaccion WHERE concepto_pago_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check concept usage: %w", err)
	}
	return true, nil
}

// Deactivate hides a concept from new transactions without breaking history.
func (r *PaymentConceptRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE conceptos_pago SET activo = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate payment concept: %w", err)
	}
	return nil
}
