package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sm := NewDefaultServiceManager(env.db, env.repo, log, validator.New(), env.publisher)

	assert.Panics(t, func() { sm.Course() })
	assert.Error(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Initialize(ctx))
	require.NoError(t, sm.Initialize(ctx), "initialize is idempotent")
	require.NoError(t, sm.HealthCheck(ctx))

	// Async delivery is drained by Shutdown
	created, err := sm.Course().Create(ctx, &CreateCourseRequest{Title: "Managed"}, teacherID)
	require.NoError(t, err)
	_, err = sm.Course().Submit(ctx, created.ID, teacherID)
	require.NoError(t, err)

	require.NoError(t, sm.Shutdown(ctx))
	require.NoError(t, sm.Shutdown(ctx))
	assert.Error(t, sm.HealthCheck(ctx))

	assert.Len(t, env.notificationsFor(t, adminID, models.NotificationCourseSubmitted), 1)
}
