package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

// InvoiceRepository manages fiscal invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoices matching the provided filters.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	base := "FROM facturas f"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.NITCliente != "" {
		conditions = append(conditions, fmt.Sprintf("f.nit_cliente = $%d", len(args)+1))
		args = append(args, filter.NITCliente)
	}
	if filter.Desde != nil {
		conditions = append(conditions, fmt.Sprintf("f.fecha_emision >= $%d", len(args)+1))
		args = append(args, *filter.Desde)
	}
	if filter.Hasta != nil {
		conditions = append(conditions, fmt.Sprintf("f.fecha_emision <= $%d", len(args)+1))
		args = append(args, *filter.Hasta)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT f.id, f.numero_factura, f.transaccion_id, f.nit_cliente, f.razon_social,
        f.subtotal, f.iva, f.it, f.total, f.fecha_emision, f.created_at
        %s ORDER BY f.fecha_emision DESC LIMIT %d OFFSET %d`, base, size, offset)

	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID fetches an invoice by ID.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	const query = `SELECT id, numero_factura, transaccion_id, nit_cliente, razon_social,
        subtotal, iva, it, total, fecha_emision, created_at FROM facturas WHERE id = $1`
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByTransaction fetches the invoice issued for a transaction, if any.
func (r *InvoiceRepository) FindByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error) {
	const query = `SELECT id, numero_factura, transaccion_id, nit_cliente, razon_social,
        subtotal, iva, it, total, fecha_emision, created_at FROM facturas WHERE transaccion_id = $1`
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, transactionID); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create issues an invoice with the next sequential number for the emission
// year, of the form F-YYYY-NNNNNN. Number generation and the insert run in
// one transaction so concurrent issuances cannot collide.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice tx: %w", err)
	}
	defer tx.Rollback()

	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.FechaEmision.IsZero() {
		invoice.FechaEmision = now
	}
	invoice.CreatedAt = now

	prefix := fmt.Sprintf("F-%d-", invoice.FechaEmision.Year())
	const numberQuery = `SELECT COALESCE(MAX(CAST(SUBSTRING(numero_factura FROM 8) AS INTEGER)), 0)
        FROM facturas WHERE numero_factura LIKE $1`
	var last int
	if err := tx.GetContext(ctx, &last, numberQuery, prefix+"%"); err != nil {
		return fmt.Errorf("next invoice number: %w", err)
	}
	invoice.NumeroFactura = fmt.Sprintf("%s%06d", prefix, last+1)

	const insert = `INSERT INTO facturas (id, numero_factura, transaccion_id, nit_cliente, razon_social,
        subtotal, iva, it, total, fecha_emision, created_at)
        VALUES (:id, :numero_factura, :transaccion_id, :nit_cliente, :razon_social,
        :subtotal, :iva, :it, :total, :fecha_emision, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, invoice); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "la transaccion ya tiene factura")
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice: %w", err)
	}
	return nil
}

// ExistsForTransaction reports whether the transaction already has an invoice.
func (r *InvoiceRepository) ExistsForTransaction(ctx context.Context, transactionID string) (bool, error) {
	const query = `SELECT 1 FROM facturas WHERE transaccion_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, transactionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check invoice: %w", err)
	}
	return true, nil
}
