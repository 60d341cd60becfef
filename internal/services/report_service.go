package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

const (
	progressSheet = "Progress"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var progressHeader = []interface{}{"Learner ID", "Name", "Email", "Completed Lessons", "Total Lessons", "Percentage", "Can Review"}

type reportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

type learnerProgressRow struct {
	UserID     string
	Name       string
	Email      string
	Completed  int64
	Total      int64
	Percentage int
}

// ExportCourseProgress renders one row per approved learner
func (s *reportService) ExportCourseProgress(ctx context.Context, courseID uint, actorID string) (*ProgressReport, error) {
	actor, err := resolveActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReviewStudents) {
		return nil, NewPermissionError(actor.ID, courseID, "course", "export progress", "owner or operator role required")
	}

	rows, err := s.collectRows(ctx, courseID)
	if err != nil {
		return nil, err
	}

	data, err := renderProgressWorkbook(course, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render progress report: %w", err)
	}

	s.logger.Info("Progress report exported", "course_id", courseID, "learners", len(rows), "actor_id", actor.ID)

	return &ProgressReport{
		Filename:    fmt.Sprintf("course-%d-progress-%s.xlsx", courseID, time.Now().UTC().Format("20060102")),
		ContentType: xlsxMIME,
		Data:        data,
	}, nil
}

func (s *reportService) collectRows(ctx context.Context, courseID uint) ([]learnerProgressRow, error) {
	userIDs, err := s.repo.Enrollment().ListApprovedUserIDs(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	total, err := s.repo.Lesson().CountByCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	counts, err := s.repo.Progress().CountCompletedByUsers(ctx, s.db, courseID, userIDs)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]int64, len(counts))
	for _, c := range counts {
		completed[c.UserID] = c.Count
	}

	// Names are best effort; the report still renders when the directory is down
	users := map[string]*models.User{}
	if found, err := s.repo.User().GetByIDs(ctx, userIDs); err != nil {
		s.logger.Warn("Failed to resolve learner names", "course_id", courseID, "error", err)
	} else {
		for _, u := range found {
			users[u.ID] = u
		}
	}

	rows := make([]learnerProgressRow, 0, len(userIDs))
	for _, id := range userIDs {
		row := learnerProgressRow{
			UserID:     id,
			Completed:  completed[id],
			Total:      total,
			Percentage: completionPercentage(completed[id], total),
		}
		if u, ok := users[id]; ok {
			row.Name = u.FullName
			row.Email = u.Email
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func renderProgressWorkbook(course *models.Course, rows []learnerProgressRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(progressSheet, "A1", &progressHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(progressSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	sum := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{row.UserID, row.Name, row.Email, row.Completed, row.Total, row.Percentage, row.Percentage == 100}
		if err := f.SetSheetRow(progressSheet, cell, &values); err != nil {
			return nil, err
		}
		sum += row.Percentage
	}

	// Summary row below the data
	summaryRow := len(rows) + 3
	average := 0.0
	if len(rows) > 0 {
		average = float64(sum) / float64(len(rows))
	}
	cell, err := excelize.CoordinatesToCellName(1, summaryRow)
	if err != nil {
		return nil, err
	}
	summary := []interface{}{"Course", course.Title, "Learners", len(rows), "Average", fmt.Sprintf("%.2f", average)}
	if err := f.SetSheetRow(progressSheet, cell, &summary); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(progressSheet, "A", "C", 28); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
