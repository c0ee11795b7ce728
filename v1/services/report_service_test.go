package services

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReports(t *testing.T, service *ReportService) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reports := []models.Report{
		{Title: "Banking Outlook", Description: "European banks", Category: "Equity", BaseModel: models.BaseModel{CreatedAt: base}},
		{Title: "Rates Monthly", Description: "ECB path and BANKING liquidity", Category: "Macro", BaseModel: models.BaseModel{CreatedAt: base.Add(time.Hour)}},
		{Title: "Energy Sector", Description: "Oil majors", Category: "equity", BaseModel: models.BaseModel{CreatedAt: base.Add(2 * time.Hour)}},
	}
	for i := range reports {
		require.NoError(t, service.db.Create(&reports[i]).Error)
	}
}

func titles(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.Title
	}
	return out
}

func TestListReports(t *testing.T) {
	service := NewReportService(setupSQLiteTestDB(t), nil)
	seedReports(t, service)
	ctx := context.Background()

	t.Run("default order is newest first", func(t *testing.T) {
		got, err := service.ListReports(ctx, models.ListReportsQuery{})
		require.NoError(t, err)
		assert.Equal(t, 3, got.Total)
		assert.Equal(t, []string{"Energy Sector", "Rates Monthly", "Banking Outlook"}, titles(got.Items))
	})

	t.Run("category is exact and case sensitive", func(t *testing.T) {
		got, err := service.ListReports(ctx, models.ListReportsQuery{Category: "Equity"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Banking Outlook"}, titles(got.Items))
	})

	t.Run("search matches title or description ignoring case", func(t *testing.T) {
		got, err := service.ListReports(ctx, models.ListReportsQuery{Search: "banking", SortBy: "title", Order: "asc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Banking Outlook", "Rates Monthly"}, titles(got.Items))
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		got, err := service.ListReports(ctx, models.ListReportsQuery{Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Total)
		assert.NotNil(t, got.Items)
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := service.ListReports(ctx, models.ListReportsQuery{SortBy: "password"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

		_, err = service.ListReports(ctx, models.ListReportsQuery{Order: "sideways"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestListReports_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewReportService(db, nil)
	mock.ExpectQuery(`SELECT \* FROM "reports"`).WillReturnError(errors.New("connection refused"))

	_, err := service.ListReports(context.Background(), models.ListReportsQuery{})
	apiErr := apperrors.GetAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, "DATABASE_ERROR", apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportLifecycle(t *testing.T) {
	auditor := &recordingAuditor{}
	service := NewReportService(setupSQLiteTestDB(t), auditor)
	ctx := context.Background()

	_, err := service.CreateReport(ctx, adminCaller(), &models.CreateReportRequest{Title: "No category"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	report, err := service.CreateReport(ctx, adminCaller(), &models.CreateReportRequest{
		Title: "Q1 Review", Category: "Equity", Author: "Research Team",
	})
	require.NoError(t, err)
	created := report.CreatedAt

	updated, err := service.UpdateReport(ctx, adminCaller(), report.ID, models.ReportPatch{
		Description: strPtr("Quarterly review"),
		Author:      strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Quarterly review", updated.Description)
	assert.Equal(t, "", updated.Author)
	assert.Equal(t, "Q1 Review", updated.Title)
	assert.True(t, created.Equal(updated.CreatedAt))

	_, err = service.UpdateReport(ctx, adminCaller(), report.ID, models.ReportPatch{Title: strPtr(" ")})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	require.NoError(t, service.DeleteReport(ctx, adminCaller(), report.ID))
	_, err = service.GetReport(ctx, report.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.True(t, apperrors.IsType(service.DeleteReport(ctx, adminCaller(), report.ID), apperrors.ErrorTypeNotFound))
}
