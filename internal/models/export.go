package models

import "time"

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult describes a rendered export and its signed download token.
type ExportResult struct {
	ExportID  string       `json:"export_id"`
	Format    ExportFormat `json:"format"`
	FileName  string       `json:"file_name"`
	RowCount  int          `json:"row_count"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}
