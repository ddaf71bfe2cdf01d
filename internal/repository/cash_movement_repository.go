package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// CashMovementRepository manages the append-only cash ledger.
type CashMovementRepository struct {
	db *sqlx.DB
}

// NewCashMovementRepository constructs the repository.
func NewCashMovementRepository(db *sqlx.DB) *CashMovementRepository {
	return &CashMovementRepository{db: db}
}

// List returns ledger entries matching the provided filters.
func (r *CashMovementRepository) List(ctx context.Context, filter models.CashMovementFilter) ([]models.CashMovement, int, error) {
	base := "FROM movimientos_caja m"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Tipo != "" {
		conditions = append(conditions, fmt.Sprintf("m.tipo = $%d", len(args)+1))
		args = append(args, filter.Tipo)
	}
	if filter.FormaPago != "" {
		conditions = append(conditions, fmt.Sprintf("m.forma_pago = $%d", len(args)+1))
		args = append(args, filter.FormaPago)
	}
	if filter.Desde != nil {
		conditions = append(conditions, fmt.Sprintf("m.fecha >= $%d", len(args)+1))
		args = append(args, *filter.Desde)
	}
	if filter.Hasta != nil {
		conditions = append(conditions, fmt.Sprintf("m.fecha <= $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT m.id, m.tipo, m.monto, m.forma_pago, m.concepto, m.transaccion_id, m.fecha, m.registrado_por, m.created_at
        %s ORDER BY m.fecha DESC LIMIT %d OFFSET %d`, base, size, offset)

	var movements []models.CashMovement
	if err := r.db.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cash movements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cash movements: %w", err)
	}
	return movements, total, nil
}

// Create inserts a manual ledger entry. Entries tied to transactions are
// written by the transaction repository inside its own transactions.
func (r *CashMovementRepository) Create(ctx context.Context, movement *models.CashMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if movement.Fecha.IsZero() {
		movement.Fecha = now
	}
	movement.CreatedAt = now
	const query = `INSERT INTO movimientos_caja (id, tipo, monto, forma_pago, concepto, transaccion_id, fecha, registrado_por, created_at)
        VALUES (:id, :tipo, :monto, :forma_pago, :concepto, :transaccion_id, :fecha, :registrado_por, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, movement); err != nil {
		return fmt.Errorf("create cash movement: %w", err)
	}
	return nil
}

// PeriodTotals sums inflows and outflows inside the date window.
func (r *CashMovementRepository) PeriodTotals(ctx context.Context, from, to time.Time) (*models.CashPeriodTotals, error) {
	const query = `SELECT
        COALESCE(SUM(monto) FILTER (WHERE tipo = 'INGRESO'), 0) AS ingresos,
        COALESCE(SUM(monto) FILTER (WHERE tipo = 'EGRESO'), 0) AS egresos,
        COALESCE(SUM(monto) FILTER (WHERE tipo = 'INGRESO'), 0) - COALESCE(SUM(monto) FILTER (WHERE tipo = 'EGRESO'), 0) AS saldo
        FROM movimientos_caja WHERE fecha >= $1 AND fecha <= $2`
	var totals models.CashPeriodTotals
	if err := r.db.GetContext(ctx, &totals, query, from, to); err != nil {
		return nil, fmt.Errorf("cash period totals: %w", err)
	}
	return &totals, nil
}
