package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// fakeDirectory is an in-memory user directory
type fakeDirectory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: map[string]*models.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
}

func (d *fakeDirectory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
}

func (d *fakeDirectory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := d.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.User
	for _, u := range d.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*models.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (d *fakeDirectory) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return d.List(ctx, filters)
}

func (d *fakeDirectory) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := d.GetByID(ctx, id)
	return err == nil, nil
}

func (d *fakeDirectory) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := d.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return u.Role == role, nil
}

const (
	teacherID  = "teacher-1"
	otherID    = "teacher-2"
	adminID    = "admin-1"
	studentID  = "student-1"
	student2ID = "student-2"
)

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	users     *fakeDirectory
	publisher *events.MockEventPublisher

	courses       CourseService
	enrollments   EnrollmentService
	progress      ProgressService
	quizzes       QuizService
	notifications NotificationService
	reports       ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

// newTestEnvWithCache wires the repositories to redisClient so reads go through the course cache
func newTestEnvWithCache(t *testing.T, redisClient *redis.Client) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, postgres.Migrate(db))

	users := newFakeDirectory(
		&models.User{ID: teacherID, FullName: "Tess Teacher", Email: "tess@example.com", Role: models.RoleTeacher},
		&models.User{ID: otherID, FullName: "Other Teacher", Email: "other@example.com", Role: models.RoleTeacher},
		&models.User{ID: adminID, FullName: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin},
		&models.User{ID: studentID, FullName: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent},
		&models.User{ID: student2ID, FullName: "Sky Student", Email: "sky@example.com", Role: models.RoleStudent},
	)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: redisClient, UserRepository: users})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()
	publisher := events.NewMockEventPublisher(log)
	dispatcher := NewEventDispatcher(repo, publisher, log, DispatcherConfig{Async: false})

	return &testEnv{
		db:            db,
		repo:          repo,
		users:         users,
		publisher:     publisher,
		courses:       NewCourseService(repo, db, log, v, dispatcher),
		enrollments:   NewEnrollmentService(repo, db, log, v, dispatcher),
		progress:      NewProgressService(repo, db, log, dispatcher),
		quizzes:       NewQuizService(repo, db, log, v, dispatcher),
		notifications: NewNotificationService(repo, db, log),
		reports:       NewReportService(repo, db, log),
	}
}

// approvedCourse creates a course owned by teacherID and takes it through review
func (e *testEnv) approvedCourse(t *testing.T, visibility models.CourseVisibility) *models.Course {
	t.Helper()
	ctx := context.Background()

	created, err := e.courses.Create(ctx, &CreateCourseRequest{Title: "Go Basics", Visibility: visibility}, teacherID)
	require.NoError(t, err)
	_, err = e.courses.Submit(ctx, created.ID, teacherID)
	require.NoError(t, err)
	approved, err := e.courses.Review(ctx, created.ID, &ReviewCourseRequest{Verdict: models.CourseApproved}, adminID)
	require.NoError(t, err)
	require.Equal(t, models.CourseApproved, approved.Status)
	return approved.Course
}

// addArticleLessons adds n article lessons to a fresh section and returns their ids
func (e *testEnv) addArticleLessons(t *testing.T, courseID uint, n int) []uint {
	t.Helper()
	ctx := context.Background()

	section, err := e.courses.AddSection(ctx, courseID, &CreateSectionRequest{Title: "Section"}, teacherID)
	require.NoError(t, err)

	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("Lesson body %d", i)
		lesson, err := e.courses.AddLesson(ctx, section.ID, &CreateLessonRequest{
			Title:       fmt.Sprintf("Lesson %d", i),
			ContentType: models.ContentArticle,
			ArticleBody: &body,
		}, teacherID)
		require.NoError(t, err)
		ids = append(ids, lesson.ID)
	}
	return ids
}

// enroll requests an enrollment and, for private courses, has the owner approve it
func (e *testEnv) enroll(t *testing.T, courseID uint, userID string) *models.Enrollment {
	t.Helper()
	ctx := context.Background()

	enrollment, err := e.enrollments.Request(ctx, &EnrollRequest{CourseID: courseID}, userID)
	require.NoError(t, err)
	if enrollment.Status == models.EnrollmentPending {
		enrollment, err = e.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentApproved}, teacherID)
		require.NoError(t, err)
	}
	require.Equal(t, models.EnrollmentApproved, enrollment.Status)
	return enrollment
}

func (e *testEnv) notificationsFor(t *testing.T, userID string, notificationType models.NotificationType) []*models.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), userID, repositories.NotificationFilters{Limit: 100})
	require.NoError(t, err)

	var out []*models.Notification
	for _, n := range list.Notifications {
		if n.Type == notificationType {
			out = append(out, n)
		}
	}
	return out
}
