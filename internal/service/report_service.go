package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/dto"
	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/export"
	"github.com/formagestpro/formagest-api/pkg/jobs"
	"github.com/formagestpro/formagest-api/pkg/storage"
)

// Report type and format identifiers accepted by the export endpoint.
const (
	ReportTypeBalance     = "saldos"
	ReportTypeDelinquency = "morosidad"
	ReportTypeTopPayers   = "mejores_pagadores"
	ReportTypeIncome      = "ingresos_mensuales"

	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

type reportRepository interface {
	StudentBalances(ctx context.Context, programID string) ([]models.StudentBalance, error)
	Delinquents(ctx context.Context, toleranceDays int) ([]models.DelinquentStudent, error)
	TopPayers(ctx context.Context, limit int) ([]models.TopPayer, error)
	MonthlyIncome(ctx context.Context, months int) ([]models.MonthlyIncome, error)
	PaymentsOfDay(ctx context.Context, day time.Time) ([]models.DailyPayment, error)
	CreateJob(ctx context.Context, job *models.ReportJob) error
	FindJob(ctx context.Context, id string) (*models.ReportJob, error)
	MarkJobRunning(ctx context.Context, id string) error
	MarkJobCompleted(ctx context.Context, id, path string) error
	MarkJobFailed(ctx context.Context, id, reason string) error
}

type reportSettings interface {
	GetInt(ctx context.Context, key string, fallback int) int
}

type reportQueue interface {
	Enqueue(job jobs.Job) error
}

// ExportReportRequest asks for an asynchronous report export.
type ExportReportRequest struct {
	TipoReporte string            `json:"tipo_reporte"`
	Formato     string            `json:"formato"`
	Parametros  map[string]string `json:"parametros"`
}

// ReportService runs financial reports synchronously and exports them to
// CSV or PDF through the background queue.
type ReportService struct {
	repo     reportRepository
	settings reportSettings
	queue    reportQueue
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter

	defaultToleranceDays int
	logger               *zap.Logger
}

// NewReportService constructs the report service. The queue may be nil when
// exports are disabled; Export then rejects requests.
func NewReportService(repo reportRepository, settings reportSettings, queue reportQueue, files *storage.LocalStorage, signer *storage.SignedURLSigner, defaultToleranceDays int, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultToleranceDays <= 0 {
		defaultToleranceDays = 30
	}
	return &ReportService{
		repo:                 repo,
		settings:             settings,
		queue:                queue,
		files:                files,
		signer:               signer,
		csv:                  export.NewCSVExporter(),
		pdf:                  export.NewPDFExporter(),
		defaultToleranceDays: defaultToleranceDays,
		logger:               logger,
	}
}

// SetQueue wires the background queue after construction, since the queue
// handler needs the service itself.
func (s *ReportService) SetQueue(queue reportQueue) {
	s.queue = queue
}

// Balance builds the per-enrollment balance report.
func (s *ReportService) Balance(ctx context.Context, programID string) (*dto.BalanceReport, error) {
	rows, err := s.repo.StudentBalances(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build balance report")
	}
	report := &dto.BalanceReport{Filas: rows}
	for _, row := range rows {
		report.TotalCosto += row.CostoTotal
		report.TotalPagado += row.TotalPagado
		report.TotalPendiente += row.SaldoPendiente
	}
	return report, nil
}

// Delinquency lists enrollments past the tolerance window. A zero
// toleranceDays falls back to the configured installation default.
func (s *ReportService) Delinquency(ctx context.Context, toleranceDays int) (*dto.DelinquencyReport, error) {
	if toleranceDays <= 0 {
		toleranceDays = s.settings.GetInt(ctx, models.ConfigKeyDelinquencyDays, s.defaultToleranceDays)
	}
	rows, err := s.repo.Delinquents(ctx, toleranceDays)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build delinquency report")
	}
	return &dto.DelinquencyReport{DiasTolerancia: toleranceDays, Filas: rows}, nil
}

// TopPayers ranks students by confirmed payment volume.
func (s *ReportService) TopPayers(ctx context.Context, limit int) ([]models.TopPayer, error) {
	rows, err := s.repo.TopPayers(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build top payers report")
	}
	return rows, nil
}

// IncomeHistory returns the confirmed-income series for the last n months.
func (s *ReportService) IncomeHistory(ctx context.Context, months int) (*dto.IncomeHistoryReport, error) {
	rows, err := s.repo.MonthlyIncome(ctx, months)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build income history")
	}
	report := &dto.IncomeHistoryReport{Meses: rows}
	for _, month := range rows {
		report.Total += month.Total
	}
	return report, nil
}

// PaymentsOfDay lists the confirmed payments received on a given day.
func (s *ReportService) PaymentsOfDay(ctx context.Context, day time.Time) ([]models.DailyPayment, error) {
	rows, err := s.repo.PaymentsOfDay(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list daily payments")
	}
	return rows, nil
}

// Export records an export job and hands it to the background queue. The
// response carries the job ID for later polling.
func (s *ReportService) Export(ctx context.Context, req ExportReportRequest, requestedBy *string) (*dto.ReportExportResponse, error) {
	switch req.TipoReporte {
	case ReportTypeBalance, ReportTypeDelinquency, ReportTypeTopPayers, ReportTypeIncome:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report type")
	}
	switch req.Formato {
	case ReportFormatCSV, ReportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "formato must be csv or pdf")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "report exports are disabled")
	}

	params, err := json.Marshal(req.Parametros)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report parameters")
	}
	job := &models.ReportJob{
		TipoReporte:   req.TipoReporte,
		Formato:       req.Formato,
		Estado:        models.ReportJobPending,
		Parametros:    string(params),
		SolicitadoPor: requestedBy,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.TipoReporte, Payload: job.ID}); err != nil {
		if markErr := s.repo.MarkJobFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ReportExportResponse{JobID: job.ID, Estado: string(job.Estado)}, nil
}

// ProcessJob is the queue handler: it renders the requested report into the
// requested format and records the artifact path.
func (s *ReportService) ProcessJob(ctx context.Context, queued jobs.Job) error {
	jobID, ok := queued.Payload.(string)
	if !ok || jobID == "" {
		jobID = queued.ID
	}
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if job.Estado == models.ReportJobCompleted {
		return nil
	}
	if err := s.repo.MarkJobRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	data, title, err := s.buildDataset(ctx, job)
	if err != nil {
		if markErr := s.repo.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}

	var rendered []byte
	switch job.Formato {
	case ReportFormatCSV:
		rendered, err = s.csv.Render(data)
	default:
		rendered, err = s.pdf.Render(data, title)
	}
	if err != nil {
		if markErr := s.repo.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("render report: %w", err)
	}

	relPath := filepath.Join("reportes", fmt.Sprintf("%s.%s", job.ID, job.Formato))
	if _, err := s.files.Save(relPath, rendered); err != nil {
		if markErr := s.repo.MarkJobFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store report artifact: %w", err)
	}
	if err := s.repo.MarkJobCompleted(ctx, job.ID, relPath); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	s.logger.Info("report export completed",
		zap.String("job_id", job.ID),
		zap.String("tipo_reporte", job.TipoReporte),
		zap.String("formato", job.Formato))
	return nil
}

// JobStatus returns the state of an export job, with a signed download URL
// once the artifact exists.
func (s *ReportService) JobStatus(ctx context.Context, jobID string) (*dto.ReportDownloadResponse, error) {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	resp := &dto.ReportDownloadResponse{JobID: job.ID, Estado: string(job.Estado)}
	if job.Error != nil {
		resp.Error = *job.Error
	}
	if job.Estado == models.ReportJobCompleted && job.RutaArchivo != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.RutaArchivo)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
		}
		resp.URL = fmt.Sprintf("/reportes/descargar/%s", token)
		resp.ExpiraEn = expiresAt.Unix()
	}
	return resp, nil
}

// ResolveDownload validates a signed token and returns the artifact path.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (string, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.RutaArchivo == nil || *job.RutaArchivo != relPath {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.files.Path(relPath), job, nil
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	params := map[string]string{}
	if job.Parametros != "" {
		if err := json.Unmarshal([]byte(job.Parametros), &params); err != nil {
			return export.Dataset{}, "", fmt.Errorf("parse job parameters: %w", err)
		}
	}

	switch job.TipoReporte {
	case ReportTypeBalance:
		report, err := s.Balance(ctx, params["programa_id"])
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Estudiante", "Programa", "Costo", "Pagado", "Saldo", "Estado"}}
		for _, row := range report.Filas {
			data.Rows = append(data.Rows, map[string]string{
				"Estudiante": row.EstudianteNombre,
				"Programa":   row.ProgramaNombre,
				"Costo":      formatAmount(row.CostoTotal),
				"Pagado":     formatAmount(row.TotalPagado),
				"Saldo":      formatAmount(row.SaldoPendiente),
				"Estado":     string(row.EstadoFinanciero),
			})
		}
		return data, "Reporte de saldos", nil

	case ReportTypeDelinquency:
		tolerance, _ := strconv.Atoi(params["dias_tolerancia"])
		report, err := s.Delinquency(ctx, tolerance)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Estudiante", "Programa", "Telefono", "Saldo", "Dias sin pago"}}
		for _, row := range report.Filas {
			data.Rows = append(data.Rows, map[string]string{
				"Estudiante":    row.EstudianteNombre,
				"Programa":      row.ProgramaNombre,
				"Telefono":      row.Telefono,
				"Saldo":         formatAmount(row.SaldoPendiente),
				"Dias sin pago": strconv.Itoa(row.DiasSinPago),
			})
		}
		return data, "Reporte de morosidad", nil

	case ReportTypeTopPayers:
		limit, _ := strconv.Atoi(params["limite"])
		rows, err := s.TopPayers(ctx, limit)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Estudiante", "Total pagado", "Transacciones"}}
		for _, row := range rows {
			data.Rows = append(data.Rows, map[string]string{
				"Estudiante":    row.EstudianteNombre,
				"Total pagado":  formatAmount(row.TotalPagado),
				"Transacciones": strconv.Itoa(row.Transacciones),
			})
		}
		return data, "Mejores pagadores", nil

	case ReportTypeIncome:
		months, _ := strconv.Atoi(params["meses"])
		report, err := s.IncomeHistory(ctx, months)
		if err != nil {
			return export.Dataset{}, "", err
		}
		data := export.Dataset{Headers: []string{"Anio", "Mes", "Total", "Transacciones"}}
		for _, month := range report.Meses {
			data.Rows = append(data.Rows, map[string]string{
				"Anio":          strconv.Itoa(month.Anio),
				"Mes":           time.Month(month.Mes).String(),
				"Total":         formatAmount(month.Total),
				"Transacciones": strconv.Itoa(month.Cuenta),
			})
		}
		return data, "Ingresos mensuales", nil
	}
	return export.Dataset{}, "", fmt.Errorf("unknown report type %q", job.TipoReporte)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
