package dto

import "github.com/formagestpro/formagest-api/internal/models"

// BalanceReport is the per-enrollment balance payload plus totals.
type BalanceReport struct {
	Filas          []models.StudentBalance `json:"filas"`
	TotalCosto     float64                 `json:"total_costo"`
	TotalPagado    float64                 `json:"total_pagado"`
	TotalPendiente float64                 `json:"total_pendiente"`
}

// DelinquencyReport lists enrollments past the tolerance window.
type DelinquencyReport struct {
	DiasTolerancia int                        `json:"dias_tolerancia"`
	Filas          []models.DelinquentStudent `json:"filas"`
}

// IncomeHistoryReport is the monthly confirmed-income series.
type IncomeHistoryReport struct {
	Meses []models.MonthlyIncome `json:"meses"`
	Total float64                `json:"total"`
}

// ReportExportResponse acknowledges an async export request.
type ReportExportResponse struct {
	JobID  string `json:"job_id"`
	Estado string `json:"estado"`
}

// ReportDownloadResponse carries the signed URL of a finished export.
type ReportDownloadResponse struct {
	JobID     string `json:"job_id"`
	Estado    string `json:"estado"`
	URL       string `json:"url,omitempty"`
	ExpiraEn  int64  `json:"expira_en,omitempty"`
	Error     string `json:"error,omitempty"`
}
