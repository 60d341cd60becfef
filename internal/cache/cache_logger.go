package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func CourseKey(courseID uint) string {
	return fmt.Sprintf("id:%d", courseID)
}

func LessonCountKey(courseID uint) string {
	return fmt.Sprintf("count:course:%d", courseID)
}

// InvalidateCourseCache drops the cached course row
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID uint) {
	SafeDelete(ctx, cm.Course, CourseKey(courseID))
}

// InvalidateLessonCache drops the lesson count, which every progress percentage of the course depends on
func InvalidateLessonCache(ctx context.Context, cm *CacheManager, courseID uint) {
	SafeDelete(ctx, cm.Lesson, LessonCountKey(courseID))
}
