package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

// NotificationRequest is one message for one recipient. ToOperators addresses the reviewer pool
// instead, which is resolved when the notification is delivered.
type NotificationRequest struct {
	UserID       string
	ToOperators  bool
	Type         models.NotificationType
	Message      string
	CourseID     *uint
	EnrollmentID *uint
	Metadata     map[string]interface{}
}

func (r NotificationRequest) dedupKey() string {
	var courseID, enrollmentID uint
	if r.CourseID != nil {
		courseID = *r.CourseID
	}
	if r.EnrollmentID != nil {
		enrollmentID = *r.EnrollmentID
	}
	return fmt.Sprintf("%s|%s|%d|%d", r.UserID, r.Type, courseID, enrollmentID)
}

// NotificationDispatcher delivers lifecycle notifications. Dispatch never fails the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notifications []NotificationRequest)
}

type DispatcherConfig struct {
	// Async delivers on a detached goroutine so the request path never waits on the inbox or the broker
	Async   bool
	Timeout time.Duration
}

// EventDispatcher persists notifications to the inbox and publishes one event per row
type EventDispatcher struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	config    DispatcherConfig

	wg sync.WaitGroup
}

func NewEventDispatcher(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, config DispatcherConfig) *EventDispatcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &EventDispatcher{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

func (d *EventDispatcher) Dispatch(ctx context.Context, notifications []NotificationRequest) {
	notifications = addressed(notifications)
	if len(notifications) == 0 {
		return
	}

	if !d.config.Async {
		ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
		d.deliver(ctx, notifications)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := utils.WithoutCancel(ctx, d.config.Timeout)
		defer cancel()
		d.deliver(ctx, notifications)
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (d *EventDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *EventDispatcher) deliver(ctx context.Context, notifications []NotificationRequest) {
	notifications = dedupNotifications(d.expandOperators(ctx, notifications))
	if len(notifications) == 0 {
		return
	}

	rows := make([]*models.Notification, 0, len(notifications))
	for _, n := range notifications {
		row := &models.Notification{
			UserID:       n.UserID,
			Type:         n.Type,
			Message:      n.Message,
			CourseID:     n.CourseID,
			EnrollmentID: n.EnrollmentID,
		}
		if len(n.Metadata) > 0 {
			if raw, err := json.Marshal(n.Metadata); err == nil {
				row.Metadata = datatypes.JSON(raw)
			}
		}
		rows = append(rows, row)
	}

	if err := d.repo.Notification().CreateBatch(ctx, nil, rows); err != nil {
		d.logger.Error("Failed to store notifications", "count", len(rows), "error", err)
		return
	}

	if d.publisher == nil {
		return
	}
	for _, row := range rows {
		event := events.NewEvent(events.NotificationEventType(string(row.Type)), events.NotificationEvent{
			NotificationID: row.ID,
			UserID:         row.UserID,
			Type:           string(row.Type),
			Message:        row.Message,
			CourseID:       row.CourseID,
			EnrollmentID:   row.EnrollmentID,
		})
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Warn("Failed to publish notification event",
				"notification_id", row.ID, "type", row.Type, "error", err)
		}
	}
}

// expandOperators replaces every operator-addressed request with one request per operator.
// A directory failure is logged and drops only those requests.
func (d *EventDispatcher) expandOperators(ctx context.Context, notifications []NotificationRequest) []NotificationRequest {
	var (
		operators []*models.User
		resolved  bool
	)

	out := make([]NotificationRequest, 0, len(notifications))
	for _, n := range notifications {
		if !n.ToOperators {
			out = append(out, n)
			continue
		}

		if !resolved {
			var err error
			operators, err = d.repo.User().ListByRole(ctx, models.RoleAdmin)
			if err != nil {
				d.logger.Error("Failed to resolve reviewer pool", "type", n.Type, "error", err)
			}
			resolved = true
		}
		for _, op := range operators {
			personal := n
			personal.ToOperators = false
			personal.UserID = op.ID
			out = append(out, personal)
		}
	}
	return out
}

// addressed drops requests without a recipient
func addressed(notifications []NotificationRequest) []NotificationRequest {
	out := make([]NotificationRequest, 0, len(notifications))
	for _, n := range notifications {
		if n.UserID != "" || n.ToOperators {
			out = append(out, n)
		}
	}
	return out
}

// dedupNotifications keeps the first request per (user, type, course, enrollment)
func dedupNotifications(notifications []NotificationRequest) []NotificationRequest {
	seen := make(map[string]bool, len(notifications))
	out := make([]NotificationRequest, 0, len(notifications))
	for _, n := range notifications {
		if n.UserID == "" {
			continue
		}
		key := n.dedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// ===== INBOX =====

type notificationService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewNotificationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *notificationService) List(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error) {
	notifications, total, err := s.repo.Notification().ListByUser(ctx, s.db, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.repo.Notification().CountUnread(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) error {
	if err := s.repo.Notification().MarkRead(ctx, s.db, id, userID); err != nil {
		return mapStoreError(err, ErrNotificationNotFound)
	}
	return nil
}

// ===== MESSAGE BUILDERS =====

func courseNotification(userID string, t models.NotificationType, course *models.Course, message string) NotificationRequest {
	return NotificationRequest{
		UserID:   userID,
		Type:     t,
		Message:  message,
		CourseID: uintPtr(course.ID),
	}
}

func enrollmentNotification(userID string, t models.NotificationType, enrollment *models.Enrollment, message string) NotificationRequest {
	return NotificationRequest{
		UserID:       userID,
		Type:         t,
		Message:      message,
		CourseID:     uintPtr(enrollment.CourseID),
		EnrollmentID: uintPtr(enrollment.ID),
	}
}

// operatorNotification addresses the reviewer pool; the dispatcher resolves it off the request path
func operatorNotification(t models.NotificationType, course *models.Course, message string) NotificationRequest {
	n := courseNotification("", t, course, message)
	n.ToOperators = true
	return n
}
