package service

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/storage"
)

type exportRequestsStub struct {
	requests []models.AccountRequest
}

func (s exportRequestsStub) List(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, int, error) {
	return s.requests, len(s.requests), nil
}

func newExportServiceForTest(t *testing.T, cfg ExportConfig) (*ExportService, *storage.ExportStore) {
	t.Helper()
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("secret", time.Hour)
	club := "Chess Club"
	reason := "duplicate submission"
	admin := "admin-1"
	stub := exportRequestsStub{requests: []models.AccountRequest{
		{
			ID:        "req-1",
			Kind:      models.RequestKindOrganizer,
			Email:     "alice@campus.edu",
			Username:  "alice",
			ClubName:  &club,
			Status:    models.RequestStatusPending,
			CreatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:              "req-2",
			Kind:            models.RequestKindAdmin,
			Email:           "bob@campus.edu",
			Username:        "bob",
			Status:          models.RequestStatusRejected,
			CreatedAt:       time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
			RejectedBy:      &admin,
			RejectionReason: &reason,
		},
	}}
	svc := NewExportService(stub, store, signer, zap.NewNop(), cfg)
	return svc, store
}

func TestExportRequestsCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t, ExportConfig{Enabled: true})

	result, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, models.ExportFormatCSV, result.Format)
	require.Equal(t, 2, result.RowCount)
	require.NotEmpty(t, result.Token)

	path, err := store.Path(result.FileName)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	file, relPath, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, result.FileName, relPath)

	payload, err := io.ReadAll(file)
	require.NoError(t, err)
	body := string(payload)
	require.True(t, strings.HasPrefix(body, "ID,Kind,Email,Username,Club,Status,Created,Resolved By,Reason"))
	require.Contains(t, body, "alice@campus.edu")
	require.Contains(t, body, "duplicate submission")
}

func TestExportRequestsPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t, ExportConfig{Enabled: true})

	result, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, models.ExportFormatPDF, result.Format)

	path, err := store.Path(result.FileName)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportRequestsDisabled(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportConfig{Enabled: false})

	_, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormatCSV)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportRequestsRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportConfig{Enabled: true})

	_, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormat("xlsx"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOpenRejectsTamperedToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportConfig{Enabled: true})

	result, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormatCSV)
	require.NoError(t, err)

	_, _, err = svc.Open(result.Token + "x")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestCleanupExpiredRemovesOldFiles(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportConfig{Enabled: true, RetentionTTL: time.Nanosecond})

	_, err := svc.ExportRequests(context.Background(), models.RequestFilter{}, models.ExportFormatCSV)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}
