package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/jobs"
	"github.com/formagestpro/formagest-api/pkg/storage"
)

type mockReportRepo struct {
	balances    []models.StudentBalance
	delinquents []models.DelinquentStudent
	jobsByID    map[string]*models.ReportJob
}

func (m *mockReportRepo) StudentBalances(ctx context.Context, programID string) ([]models.StudentBalance, error) {
	return m.balances, nil
}

func (m *mockReportRepo) Delinquents(ctx context.Context, toleranceDays int) ([]models.DelinquentStudent, error) {
	return m.delinquents, nil
}

func (m *mockReportRepo) TopPayers(ctx context.Context, limit int) ([]models.TopPayer, error) {
	return nil, nil
}

func (m *mockReportRepo) MonthlyIncome(ctx context.Context, months int) ([]models.MonthlyIncome, error) {
	return nil, nil
}

func (m *mockReportRepo) PaymentsOfDay(ctx context.Context, day time.Time) ([]models.DailyPayment, error) {
	return nil, nil
}

func (m *mockReportRepo) CreateJob(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "j1"
	}
	if m.jobsByID == nil {
		m.jobsByID = make(map[string]*models.ReportJob)
	}
	m.jobsByID[job.ID] = job
	return nil
}

func (m *mockReportRepo) FindJob(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobsByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockReportRepo) MarkJobRunning(ctx context.Context, id string) error {
	m.jobsByID[id].Estado = models.ReportJobRunning
	return nil
}

func (m *mockReportRepo) MarkJobCompleted(ctx context.Context, id, path string) error {
	job := m.jobsByID[id]
	job.Estado = models.ReportJobCompleted
	job.RutaArchivo = &path
	return nil
}

func (m *mockReportRepo) MarkJobFailed(ctx context.Context, id, reason string) error {
	job := m.jobsByID[id]
	job.Estado = models.ReportJobFailed
	job.Error = &reason
	return nil
}

type mockReportSettings struct {
	toleranceDays int
}

func (m *mockReportSettings) GetInt(ctx context.Context, key string, fallback int) int {
	if m.toleranceDays > 0 {
		return m.toleranceDays
	}
	return fallback
}

type mockReportQueue struct {
	enqueued []jobs.Job
}

func (m *mockReportQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newReportServiceForTest(t *testing.T, repo *mockReportRepo, queue reportQueue) *ReportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReportService(repo, &mockReportSettings{toleranceDays: 45}, queue, files, signer, 30, zap.NewNop())
}

func TestBalanceReportSumsTotals(t *testing.T) {
	repo := &mockReportRepo{balances: []models.StudentBalance{
		{EstudianteNombre: "Ana", CostoTotal: 4000, TotalPagado: 4000, SaldoPendiente: 0, EstadoFinanciero: models.StandingCompleto},
		{EstudianteNombre: "Luis", CostoTotal: 4000, TotalPagado: 1000, SaldoPendiente: 3000, EstadoFinanciero: models.StandingInicial},
	}}
	svc := newReportServiceForTest(t, repo, &mockReportQueue{})

	report, err := svc.Balance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 8000.0, report.TotalCosto)
	assert.Equal(t, 5000.0, report.TotalPagado)
	assert.Equal(t, 3000.0, report.TotalPendiente)
}

func TestDelinquencyUsesConfiguredTolerance(t *testing.T) {
	repo := &mockReportRepo{}
	svc := newReportServiceForTest(t, repo, &mockReportQueue{})

	report, err := svc.Delinquency(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 45, report.DiasTolerancia)

	report, err = svc.Delinquency(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, 60, report.DiasTolerancia)
}

func TestExportRejectsUnknownType(t *testing.T) {
	svc := newReportServiceForTest(t, &mockReportRepo{}, &mockReportQueue{})

	_, err := svc.Export(context.Background(), ExportReportRequest{TipoReporte: "inventario", Formato: ReportFormatCSV}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportEnqueuesJob(t *testing.T) {
	repo := &mockReportRepo{}
	queue := &mockReportQueue{}
	svc := newReportServiceForTest(t, repo, queue)

	resp, err := svc.Export(context.Background(), ExportReportRequest{
		TipoReporte: ReportTypeBalance,
		Formato:     ReportFormatCSV,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.ReportJobPending), resp.Estado)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.JobID, queue.enqueued[0].ID)
}

func TestProcessJobCompletesCSVExport(t *testing.T) {
	repo := &mockReportRepo{balances: []models.StudentBalance{
		{EstudianteNombre: "Ana", ProgramaNombre: "Diplomado", CostoTotal: 4000, TotalPagado: 2000, SaldoPendiente: 2000, EstadoFinanciero: models.StandingParcial},
	}}
	queue := &mockReportQueue{}
	svc := newReportServiceForTest(t, repo, queue)

	resp, err := svc.Export(context.Background(), ExportReportRequest{
		TipoReporte: ReportTypeBalance,
		Formato:     ReportFormatCSV,
	}, nil)
	require.NoError(t, err)

	err = svc.ProcessJob(context.Background(), queue.enqueued[0])
	require.NoError(t, err)

	status, err := svc.JobStatus(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ReportJobCompleted), status.Estado)
	assert.NotEmpty(t, status.URL)
}
