package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"drivebook/backend/internal/domain"
	"drivebook/backend/internal/store"
)

const pendingSlotConstraint = "lessons_pending_slot_key"

type LessonRepo struct {
	db *bun.DB
}

func NewLessonRepo(db *bun.DB) *LessonRepo {
	return &LessonRepo{db: db}
}

func (r *LessonRepo) Create(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	var out domain.Lesson
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInstructorAgenda(ctx, tx, lesson.InstructorID); err != nil {
			return err
		}

		m := lesson
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == pendingSlotConstraint {
				return store.ErrConflict
			}
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return out, nil
}

// lockInstructorAgenda serializes bookings per instructor for the duration of
// the transaction, so two racing requests for the same slot resolve to one
// insert and one unique-violation.
func lockInstructorAgenda(ctx context.Context, tx bun.Tx, instructorID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", instructorID).Exec(ctx)
	return err
}

func (r *LessonRepo) GetByID(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
	var l domain.Lesson
	err := r.db.NewSelect().
		Model(&l).
		Where("id = ?", lessonID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Lesson{}, store.ErrNotFound
		}
		return domain.Lesson{}, err
	}
	return l, nil
}

func (r *LessonRepo) ListForStudent(ctx context.Context, studentID string, status domain.LessonStatus) ([]domain.Lesson, error) {
	var rows []domain.Lesson
	err := r.db.NewSelect().
		Model(&rows).
		Where("student_id = ?", studentID).
		Where("status = ?", status).
		OrderExpr("scheduled_date ASC, scheduled_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LessonRepo) ListForInstructorDay(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error) {
	var rows []domain.Lesson
	err := r.db.NewSelect().
		Model(&rows).
		Where("instructor_id = ?", instructorID).
		Where("scheduled_date = ?", date.Format("2006-01-02")).
		Where("status = ?", domain.LessonStatusPending).
		OrderExpr("scheduled_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LessonRepo) BookedTimes(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error) {
	var times []domain.TimeOfDay
	err := r.db.NewSelect().
		Model((*domain.Lesson)(nil)).
		Column("scheduled_time").
		Where("instructor_id = ?", instructorID).
		Where("vehicle_id = ?", vehicleID).
		Where("scheduled_date = ?", date.Format("2006-01-02")).
		Where("status = ?", domain.LessonStatusPending).
		OrderExpr("scheduled_time ASC").
		Scan(ctx, &times)
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *LessonRepo) UpdateStatus(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error) {
	l := domain.Lesson{ID: lessonID}
	res, err := r.db.NewUpdate().
		Model(&l).
		Set("status = ?", status).
		Set("updated_at = now()").
		Where("id = ?", lessonID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Lesson{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Lesson{}, err
	}
	if affected == 0 {
		return domain.Lesson{}, store.ErrNotFound
	}
	return l, nil
}

func (r *LessonRepo) Delete(ctx context.Context, lessonID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Lesson)(nil)).
		Where("id = ?", lessonID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *LessonRepo) MarkCompletedCounted(ctx context.Context, lessonID uuid.UUID, studentID string) (bool, error) {
	m := domain.LessonTally{
		LessonID:  lessonID,
		StudentID: studentID,
		CountedAt: time.Now().UTC(),
	}
	res, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (lesson_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *LessonRepo) CompletedCount(ctx context.Context, studentID string) (int, error) {
	return r.db.NewSelect().
		Model((*domain.LessonTally)(nil)).
		Where("student_id = ?", studentID).
		Count(ctx)
}
