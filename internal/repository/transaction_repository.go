package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

// TransactionRepository handles persistence of payment transactions, their
// concept lines and the cash-ledger entries derived from them.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository constructs the repository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `t.id, t.numero_transaccion, t.estudiante_id, t.programa_id, t.inscripcion_id,
        t.fecha_pago, t.monto_total, t.descuento_total, t.monto_final, t.forma_pago, t.estado,
        t.numero_comprobante, t.banco_origen, t.cuenta_origen, t.observaciones, t.motivo_anulacion,
        t.registrado_por, t.created_at, t.updated_at`

// List returns transactions matching the provided filters.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionWithDetails, int, error) {
	base := `FROM transacciones t
JOIN estudiantes e ON e.id = t.estudiante_id
LEFT JOIN programas p ON p.id = t.programa_id`
	var conditions []string
	var args []interface{}

	if filter.EstudianteID != "" {
		conditions = append(conditions, fmt.Sprintf("t.estudiante_id = $%d", len(args)+1))
		args = append(args, filter.EstudianteID)
	}
	if filter.ProgramaID != "" {
		conditions = append(conditions, fmt.Sprintf("t.programa_id = $%d", len(args)+1))
		args = append(args, filter.ProgramaID)
	}
	if filter.Estado != "" {
		conditions = append(conditions, fmt.Sprintf("t.estado = $%d", len(args)+1))
		args = append(args, filter.Estado)
	}
	if filter.FormaPago != "" {
		conditions = append(conditions, fmt.Sprintf("t.forma_pago = $%d", len(args)+1))
		args = append(args, filter.FormaPago)
	}
	if filter.Desde != nil {
		conditions = append(conditions, fmt.Sprintf("t.fecha_pago >= $%d", len(args)+1))
		args = append(args, *filter.Desde)
	}
	if filter.Hasta != nil {
		conditions = append(conditions, fmt.Sprintf("t.fecha_pago <= $%d", len(args)+1))
		args = append(args, *filter.Hasta)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"fecha_pago":         "t.fecha_pago",
		"numero_transaccion": "t.numero_transaccion",
		"monto_final":        "t.monto_final",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "fecha_pago"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "t.fecha_pago"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        p.nombre AS programa_nombre
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, transactionColumns, base+clause, orderBy, order, size, offset)

	var transactions []models.TransactionWithDetails
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	return transactions, total, nil
}

// FindByID returns a transaction with its concept lines.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error) {
	query := fmt.Sprintf(`SELECT %s,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        p.nombre AS programa_nombre
        FROM transacciones t
        JOIN estudiantes e ON e.id = t.estudiante_id
        LEFT JOIN programas p ON p.id = t.programa_id
        WHERE t.id = $1`, transactionColumns)
	var transaction models.TransactionWithDetails
	if err := r.db.GetContext(ctx, &transaction, query, id); err != nil {
		return nil, err
	}

	const detailQuery = `SELECT id, transaccion_id, concepto_pago_id, descripcion, cantidad, precio_unitario, subtotal, orden
        FROM detalles_transaccion WHERE transaccion_id = $1 ORDER BY orden`
	if err := r.db.SelectContext(ctx, &transaction.Detalles, detailQuery, id); err != nil {
		return nil, fmt.Errorf("load transaction details: %w", err)
	}
	return &transaction, nil
}

// FindByNumero loads a transaction by its public number.
func (r *TransactionRepository) FindByNumero(ctx context.Context, numero string) (*models.TransactionWithDetails, error) {
	query := fmt.Sprintf(`SELECT %s,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        p.nombre AS programa_nombre
        FROM transacciones t
        JOIN estudiantes e ON e.id = t.estudiante_id
        LEFT JOIN programas p ON p.id = t.programa_id
        WHERE t.numero_transaccion = $1`, transactionColumns)
	var transaction models.TransactionWithDetails
	if err := r.db.GetContext(ctx, &transaction, query, numero); err != nil {
		return nil, err
	}

	const detailQuery = `SELECT id, transaccion_id, concepto_pago_id, descripcion, cantidad, precio_unitario, subtotal, orden
        FROM detalles_transaccion WHERE transaccion_id = $1 ORDER BY orden`
	if err := r.db.SelectContext(ctx, &transaction.Detalles, detailQuery, transaction.ID); err != nil {
		return nil, fmt.Errorf("load transaction details: %w", err)
	}
	return &transaction, nil
}

// ExistsByComprobante reports whether a bank voucher number is already linked
// to a non-annulled transaction.
func (r *TransactionRepository) ExistsByComprobante(ctx context.Context, numero string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM transacciones WHERE numero_comprobante = $1 AND estado <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, numero, models.TransactionStateAnulado); err != nil {
		return false, fmt.Errorf("check comprobante: %w", err)
	}
	return exists, nil
}

// nextNumber issues the next sequential number for the payment year, of the
// form T-YYYY-NNNNNN. Two concurrent registrations can still read the same
// max; the unique index on numero_transaccion rejects the loser and the
// insert maps the violation to a CONFLICT for the client to retry.
func (r *TransactionRepository) nextNumber(ctx context.Context, tx *sqlx.Tx, year int) (string, error) {
	prefix := fmt.Sprintf("T-%d-", year)
	const query = `SELECT COALESCE(MAX(CAST(SUBSTRING(numero_transaccion FROM 8) AS INTEGER)), 0)
        FROM transacciones WHERE numero_transaccion LIKE $1`
	var last int
	if err := tx.GetContext(ctx, &last, query, prefix+"%"); err != nil {
		return "", fmt.Errorf("next transaction number: %w", err)
	}
	return fmt.Sprintf("%s%06d", prefix, last+1), nil
}

// Create persists a transaction with its concept lines atomically. A linked
// enrollment advances PREINSCRITO to INSCRITO as soon as the payment is
// registered; the cash inflow is only posted once the payment is CONFIRMADO.
func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction, details []models.TransactionDetail) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction tx: %w", err)
	}
	defer tx.Rollback()

	if transaction.ID == "" {
		transaction.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if transaction.FechaPago.IsZero() {
		transaction.FechaPago = now
	}
	if transaction.Estado == "" {
		transaction.Estado = models.TransactionStateRegistrado
	}
	transaction.CreatedAt = now
	transaction.UpdatedAt = now

	number, err := r.nextNumber(ctx, tx, transaction.FechaPago.Year())
	if err != nil {
		return nil, err
	}
	transaction.NumeroTransaccion = number

	const insert = `INSERT INTO transacciones (id, numero_transaccion, estudiante_id, programa_id, inscripcion_id,
        fecha_pago, monto_total, descuento_total, monto_final, forma_pago, estado,
        numero_comprobante, banco_origen, cuenta_origen, observaciones, motivo_anulacion, registrado_por, created_at, updated_at)
        VALUES (:id, :numero_transaccion, :estudiante_id, :programa_id, :inscripcion_id,
        :fecha_pago, :monto_total, :descuento_total, :monto_final, :forma_pago, :estado,
        :numero_comprobante, :banco_origen, :cuenta_origen, :observaciones, :motivo_anulacion, :registrado_por, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, transaction); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "numero de transaccion duplicado")
		}
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	const insertDetail = `INSERT INTO detalles_transaccion (id, transaccion_id, concepto_pago_id, descripcion, cantidad, precio_unitario, subtotal, orden)
        VALUES (:id, :transaccion_id, :concepto_pago_id, :descripcion, :cantidad, :precio_unitario, :subtotal, :orden)`
	for i := range details {
		details[i].ID = uuid.NewString()
		details[i].TransaccionID = transaction.ID
		details[i].Orden = i + 1
		if _, err := tx.NamedExecContext(ctx, insertDetail, details[i]); err != nil {
			return nil, fmt.Errorf("create transaction detail: %w", err)
		}
	}

	if err := r.advanceEnrollment(ctx, tx, transaction); err != nil {
		return nil, err
	}
	if transaction.Estado == models.TransactionStateConfirmado {
		if err := r.applyConfirmation(ctx, tx, transaction); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return transaction, nil
}

// advanceEnrollment moves the linked enrollment from PREINSCRITO to INSCRITO.
// The state guard makes the call a no-op for later payments.
func (r *TransactionRepository) advanceEnrollment(ctx context.Context, tx *sqlx.Tx, transaction *models.Transaction) error {
	if transaction.InscripcionID == nil {
		return nil
	}
	const advance = `UPDATE inscripciones SET estado_academico = $2, updated_at = $3
        WHERE id = $1 AND estado_academico = $4`
	if _, err := tx.ExecContext(ctx, advance, *transaction.InscripcionID,
		models.EnrollmentStateInscrito, time.Now().UTC(), models.EnrollmentStatePreinscrito); err != nil {
		return fmt.Errorf("advance enrollment: %w", err)
	}
	return nil
}

// applyConfirmation posts the cash inflow for a confirmed payment.
func (r *TransactionRepository) applyConfirmation(ctx context.Context, tx *sqlx.Tx, transaction *models.Transaction) error {
	movement := models.CashMovement{
		ID:            uuid.NewString(),
		Tipo:          models.CashMovementIngreso,
		Monto:         transaction.MontoFinal,
		FormaPago:     transaction.FormaPago,
		Concepto:      fmt.Sprintf("Pago %s", transaction.NumeroTransaccion),
		TransaccionID: &transaction.ID,
		Fecha:         transaction.FechaPago,
		RegistradoPor: transaction.RegistradoPor,
		CreatedAt:     time.Now().UTC(),
	}
	const insertMovement = `INSERT INTO movimientos_caja (id, tipo, monto, forma_pago, concepto, transaccion_id, fecha, registrado_por, created_at)
        VALUES (:id, :tipo, :monto, :forma_pago, :concepto, :transaccion_id, :fecha, :registrado_por, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertMovement, movement); err != nil {
		return fmt.Errorf("post cash movement: %w", err)
	}
	return nil
}

// Confirm transitions a REGISTRADO transaction to CONFIRMADO and posts the
// cash inflow in the same transaction.
func (r *TransactionRepository) Confirm(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback()

	transaction, err := r.lockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if transaction.Estado != models.TransactionStateRegistrado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "solo una transaccion registrada puede confirmarse")
	}

	now := time.Now().UTC()
	const update = `UPDATE transacciones SET estado = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.TransactionStateConfirmado, now); err != nil {
		return nil, fmt.Errorf("confirm transaction: %w", err)
	}
	transaction.Estado = models.TransactionStateConfirmado
	transaction.UpdatedAt = now

	if err := r.applyConfirmation(ctx, tx, transaction); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}
	return transaction, nil
}

// Annul voids a transaction. A confirmed transaction gets a compensating
// cash outflow so the ledger stays append-only.
func (r *TransactionRepository) Annul(ctx context.Context, id, reason string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin annul tx: %w", err)
	}
	defer tx.Rollback()

	transaction, err := r.lockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if transaction.Estado == models.TransactionStateAnulado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "la transaccion ya fue anulada")
	}
	wasConfirmed := transaction.Estado == models.TransactionStateConfirmado

	now := time.Now().UTC()
	const update = `UPDATE transacciones SET estado = $2, motivo_anulacion = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.TransactionStateAnulado, reason, now); err != nil {
		return nil, fmt.Errorf("annul transaction: %w", err)
	}
	transaction.Estado = models.TransactionStateAnulado
	transaction.MotivoAnulacion = &reason
	transaction.UpdatedAt = now

	if wasConfirmed {
		movement := models.CashMovement{
			ID:            uuid.NewString(),
			Tipo:          models.CashMovementEgreso,
			Monto:         transaction.MontoFinal,
			FormaPago:     transaction.FormaPago,
			Concepto:      fmt.Sprintf("Anulacion %s", transaction.NumeroTransaccion),
			TransaccionID: &transaction.ID,
			Fecha:         now,
			RegistradoPor: transaction.RegistradoPor,
			CreatedAt:     now,
		}
		const insertMovement = `INSERT INTO movimientos_caja (id, tipo, monto, forma_pago, concepto, transaccion_id, fecha, registrado_por, created_at)
            VALUES (:id, :tipo, :monto, :forma_pago, :concepto, :transaccion_id, :fecha, :registrado_por, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertMovement, movement); err != nil {
			return nil, fmt.Errorf("post reversal movement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit annul: %w", err)
	}
	return transaction, nil
}

func (r *TransactionRepository) lockByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Transaction, error) {
	const query = `SELECT id, numero_transaccion, estudiante_id, programa_id, inscripcion_id,
        fecha_pago, monto_total, descuento_total, monto_final, forma_pago, estado,
        numero_comprobante, banco_origen, cuenta_origen, observaciones, motivo_anulacion,
        registrado_por, created_at, updated_at
        FROM transacciones WHERE id = $1 FOR UPDATE`
	var transaction models.Transaction
	if err := tx.GetContext(ctx, &transaction, query, id); err != nil {
		return nil, err
	}
	return &transaction, nil
}

// ConfirmedTotalForEnrollment sums confirmed payments tied to an enrollment.
func (r *TransactionRepository) ConfirmedTotalForEnrollment(ctx context.Context, enrollmentID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(monto_final), 0) FROM transacciones WHERE inscripcion_id = $1 AND estado = $2`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, enrollmentID, models.TransactionStateConfirmado); err != nil {
		return 0, fmt.Errorf("sum confirmed payments: %w", err)
	}
	return total, nil
}

// Stats aggregates yearly transaction totals per state.
func (r *TransactionRepository) Stats(ctx context.Context, year int) (*models.TransactionStats, error) {
	const query = `SELECT $1::int AS anio, COUNT(*) AS total,
        COUNT(*) FILTER (WHERE estado = 'CONFIRMADO') AS confirmadas,
        COUNT(*) FILTER (WHERE estado = 'REGISTRADO') AS registradas,
        COUNT(*) FILTER (WHERE estado = 'ANULADO') AS anuladas,
        COALESCE(SUM(monto_final) FILTER (WHERE estado = 'CONFIRMADO'), 0) AS monto_confirmado,
        COALESCE(SUM(descuento_total) FILTER (WHERE estado = 'CONFIRMADO'), 0) AS descuento_otorgado
        FROM transacciones WHERE EXTRACT(YEAR FROM fecha_pago) = $1`
	var stats models.TransactionStats
	if err := r.db.GetContext(ctx, &stats, query, year); err != nil {
		return nil, fmt.Errorf("transaction stats: %w", err)
	}
	return &stats, nil
}
