package services

import (
	"context"
	"strings"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reportSortColumns maps accepted sortBy values onto columns
var reportSortColumns = map[string]string{
	"created_at":   "created_at",
	"title":        "title",
	"category":     "category",
	"published_at": "published_at",
}

// ReportService handles published research reports
type ReportService struct {
	db      *gorm.DB
	auditor audit.Auditor
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, auditor audit.Auditor) *ReportService {
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &ReportService{db: db, auditor: auditor}
}

// ListReports filters, searches and sorts reports
func (s *ReportService) ListReports(ctx context.Context, q models.ListReportsQuery) (models.CollectionResponse[models.Report], error) {
	column := "created_at"
	if q.SortBy != "" {
		c, ok := reportSortColumns[q.SortBy]
		if !ok {
			return models.CollectionResponse[models.Report]{}, apperrors.ValidationError("INVALID_SORT",
				"sortBy must be one of created_at, title, category, published_at")
		}
		column = c
	}
	desc := true
	switch strings.ToLower(q.Order) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return models.CollectionResponse[models.Report]{}, apperrors.ValidationError("INVALID_ORDER", "order must be asc or desc")
	}

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	if column != "created_at" {
		query = query.Order("created_at DESC")
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		return models.CollectionResponse[models.Report]{}, apperrors.DatabaseError("list reports", err)
	}
	return models.NewCollection(reports), nil
}

// GetReport returns a report by id
func (s *ReportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, apperrors.HandleDatabaseError(err, "Report", "get report")
	}
	return &report, nil
}

// CreateReport stores a new report
func (s *ReportService) CreateReport(ctx context.Context, caller *models.AuthenticatedUser, req *models.CreateReportRequest) (*models.Report, error) {
	report := &models.Report{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Category:     strings.TrimSpace(req.Category),
		FileURL:      req.FileURL,
		ThumbnailURL: req.ThumbnailURL,
		Author:       req.Author,
		PublishedAt:  req.PublishedAt,
	}
	if report.Title == "" {
		return nil, apperrors.ValidationError("MISSING_TITLE", "title is required")
	}
	if report.Category == "" {
		return nil, apperrors.ValidationError("MISSING_CATEGORY", "category is required")
	}

	err := s.db.WithContext(ctx).Create(report).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "Report", "create report")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionCreate,
		audit.TargetTypeReport, report.ID, err, map[string]interface{}{"title": report.Title})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateReport applies a partial update
func (s *ReportService) UpdateReport(ctx context.Context, caller *models.AuthenticatedUser, id string, patch models.ReportPatch) (*models.Report, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	changes, err := patch.Apply(report)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return report, nil
	}
	err = s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(map[string]interface{}(changes)).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "Report", "update report")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionUpdate,
		audit.TargetTypeReport, id, err, map[string]interface{}{"columns": changes.Columns()})
	if err != nil {
		return nil, err
	}
	return s.GetReport(ctx, id)
}

// DeleteReport removes a report
func (s *ReportService) DeleteReport(ctx context.Context, caller *models.AuthenticatedUser, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	var err error
	switch {
	case result.Error != nil:
		err = apperrors.DatabaseError("delete report", result.Error)
	case result.RowsAffected == 0:
		return apperrors.NotFoundError("Report")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionDelete,
		audit.TargetTypeReport, id, err, nil)
	return err
}
