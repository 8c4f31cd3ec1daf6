package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/export"
	"github.com/campushub/clubhub-api/pkg/storage"
)

type exportRequestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, int, error)
}

// ExportConfig tunes export rendering and retention.
type ExportConfig struct {
	Enabled      bool
	RetentionTTL time.Duration
	MaxRows      int
}

// ExportService renders the account-request ledger to CSV or PDF, stores the
// file on local disk and hands back a signed one-time download token. Files
// age out via the maintenance scheduler.
type ExportService struct {
	requests exportRequestRepository
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	store    *storage.ExportStore
	signer   *storage.DownloadSigner
	logger   *zap.Logger
	config   ExportConfig
}

// NewExportService constructs an ExportService instance.
func NewExportService(requests exportRequestRepository, store *storage.ExportStore, signer *storage.DownloadSigner, logger *zap.Logger, config ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RetentionTTL <= 0 {
		config.RetentionTTL = 24 * time.Hour
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 5000
	}
	return &ExportService{
		requests: requests,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		store:    store,
		signer:   signer,
		logger:   logger,
		config:   config,
	}
}

// ExportRequests renders the request ledger matching the filter.
func (s *ExportService) ExportRequests(ctx context.Context, filter models.RequestFilter, format models.ExportFormat) (*models.ExportResult, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter.Page = 1
	filter.PageSize = s.config.MaxRows
	requests, _, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests for export")
	}

	dataset := buildRequestDataset(requests)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Account Requests")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("requests/%s/%s.%s", time.Now().UTC().Format("2006-01-02"), exportID, format)
	if _, err := s.store.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("request ledger exported",
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("rows", len(requests)))

	return &models.ExportResult{
		ExportID:  exportID,
		Format:    format,
		FileName:  fileName,
		RowCount:  len(requests),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a signed download token and returns the file handle.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer exists")
	}
	return file, relPath, nil
}

// CleanupExpired removes export files past their retention window.
func (s *ExportService) CleanupExpired() (int, error) {
	removed, err := s.store.CleanupOlderThan(s.config.RetentionTTL)
	if err != nil {
		return 0, fmt.Errorf("cleanup exports: %w", err)
	}
	return len(removed), nil
}

func buildRequestDataset(requests []models.AccountRequest) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"ID", "Kind", "Email", "Username", "Club", "Status", "Created", "Resolved By", "Reason"},
	}
	for i := range requests {
		req := &requests[i]
		club := ""
		if req.ClubName != nil {
			club = *req.ClubName
		}
		resolvedBy := ""
		if req.ApprovedBy != nil {
			resolvedBy = *req.ApprovedBy
		} else if req.RejectedBy != nil {
			resolvedBy = *req.RejectedBy
		}
		reason := ""
		if req.RejectionReason != nil {
			reason = *req.RejectionReason
		}
		dataset.Rows = append(dataset.Rows, []string{
			req.ID,
			string(req.Kind),
			req.Email,
			req.Username,
			club,
			string(req.Status),
			req.CreatedAt.Format(time.RFC3339),
			resolvedBy,
			reason,
		})
	}
	return dataset
}
