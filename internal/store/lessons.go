package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"drivebook/backend/internal/domain"
)

type LessonRepository interface {
	Create(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error)
	GetByID(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error)
	ListForStudent(ctx context.Context, studentID string, status domain.LessonStatus) ([]domain.Lesson, error)
	ListForInstructorDay(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error)
	BookedTimes(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error)
	UpdateStatus(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error)
	Delete(ctx context.Context, lessonID uuid.UUID) error

	MarkCompletedCounted(ctx context.Context, lessonID uuid.UUID, studentID string) (bool, error)
	CompletedCount(ctx context.Context, studentID string) (int, error)
}
