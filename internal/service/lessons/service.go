package lessons

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"drivebook/backend/internal/domain"
	"drivebook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// DeniedError reports a lifecycle transition rejected by the guard.
type DeniedError struct {
	Reason domain.DenyReason
}

func (e *DeniedError) Error() string {
	return "transition denied: " + string(e.Reason)
}

// HolidaySource supplies the national holiday dates for a year. Failures are
// tolerated: availability proceeds with an empty set.
type HolidaySource interface {
	Holidays(ctx context.Context, year int) (domain.DateSet, error)
}

// Config carries the school's booking policy. The cancellation notice is
// tenant configuration, not a code constant.
type Config struct {
	Hours        domain.WorkingHours
	WindowDays   int
	CancelNotice time.Duration
}

type Service struct {
	repo     store.LessonRepository
	clock    store.Clock
	holidays HolidaySource
	cfg      Config
	log      *slog.Logger
}

func NewService(repo store.LessonRepository, clock store.Clock, holidays HolidaySource, cfg Config, log *slog.Logger) *Service {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.CancelNotice <= 0 {
		cfg.CancelNotice = 3 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		clock:    clock,
		holidays: holidays,
		cfg:      cfg,
		log:      log.With(slog.String("component", "service.lessons")),
	}
}

type AvailabilityInput struct {
	InstructorID string
	VehicleID    string
	Date         time.Time
}

// AvailableSlots returns the offerable lesson start times for one
// instructor/vehicle/date, against the trusted clock.
func (s *Service) AvailableSlots(ctx context.Context, in AvailabilityInput) ([]domain.TimeOfDay, error) {
	if strings.TrimSpace(in.InstructorID) == "" {
		return nil, validationError("instructor_id is required")
	}
	if strings.TrimSpace(in.VehicleID) == "" {
		return nil, validationError("vehicle_id is required")
	}
	if in.Date.IsZero() {
		return nil, validationError("date is required")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}

	holidays := s.holidaySet(ctx, in.Date.Year())

	booked, err := s.repo.BookedTimes(ctx, in.InstructorID, in.VehicleID, in.Date)
	if err != nil {
		return nil, err
	}

	return domain.AvailableSlots(s.cfg.Hours, in.Date, now, holidays, booked), nil
}

// BookingDraft is the in-progress booking selection, carried explicitly
// through the flow instead of living in shared mutable state.
type BookingDraft struct {
	SchoolID     string
	InstructorID string
	StudentID    string
	VehicleID    string
	BookedBy     string
	Date         time.Time
	Time         domain.TimeOfDay
	Kind         domain.LessonKind
}

func (s *Service) Book(ctx context.Context, draft BookingDraft) (domain.Lesson, error) {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"school_id", draft.SchoolID},
		{"instructor_id", draft.InstructorID},
		{"student_id", draft.StudentID},
		{"vehicle_id", draft.VehicleID},
		{"booked_by", draft.BookedBy},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.Lesson{}, validationError(f.name + " is required")
		}
	}
	if draft.Date.IsZero() {
		return domain.Lesson{}, validationError("date is required")
	}
	if draft.Kind != domain.LessonKindPractical && draft.Kind != domain.LessonKindTheory {
		return domain.Lesson{}, validationError("kind must be practical or theory")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return domain.Lesson{}, err
	}

	if !domain.WithinBookingWindow(draft.Date, now, s.cfg.WindowDays) {
		return domain.Lesson{}, domain.ErrOutOfWindow
	}

	holidays := s.holidaySet(ctx, draft.Date.Year())
	booked, err := s.repo.BookedTimes(ctx, draft.InstructorID, draft.VehicleID, draft.Date)
	if err != nil {
		return domain.Lesson{}, err
	}

	offerable := false
	for _, slot := range domain.AvailableSlots(s.cfg.Hours, draft.Date, now, holidays, booked) {
		if slot == draft.Time {
			offerable = true
			break
		}
	}
	if !offerable {
		return domain.Lesson{}, store.ErrConflict
	}

	// The pre-check above can still lose to a concurrent booking; the store's
	// uniqueness constraint settles that race and surfaces the same conflict.
	return s.repo.Create(ctx, domain.Lesson{
		SchoolID:      draft.SchoolID,
		InstructorID:  draft.InstructorID,
		StudentID:     draft.StudentID,
		VehicleID:     draft.VehicleID,
		ScheduledDate: draft.Date,
		ScheduledTime: draft.Time,
		Kind:          draft.Kind,
		Status:        domain.LessonStatusPending,
		BookedBy:      draft.BookedBy,
	})
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]domain.Lesson, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, validationError("student_id is required")
	}
	return s.repo.ListForStudent(ctx, studentID, domain.LessonStatusPending)
}

func (s *Service) ListForInstructorDay(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error) {
	if strings.TrimSpace(instructorID) == "" {
		return nil, validationError("instructor_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}
	return s.repo.ListForInstructorDay(ctx, instructorID, date)
}

func (s *Service) Cancel(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
	lesson, err := s.guard(ctx, lessonID, domain.ActionCancel)
	if err != nil {
		return domain.Lesson{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, lesson.ID, domain.LessonStatusCancelled)
	if err != nil {
		return domain.Lesson{}, err
	}
	return updated, nil
}

// Complete marks a started lesson as done and counts it towards the
// student's total. The tally is keyed by lesson id, so replays of the count
// are no-ops.
func (s *Service) Complete(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
	lesson, err := s.guard(ctx, lessonID, domain.ActionComplete)
	if err != nil {
		return domain.Lesson{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, lesson.ID, domain.LessonStatusCompleted)
	if err != nil {
		return domain.Lesson{}, err
	}

	counted, err := s.repo.MarkCompletedCounted(ctx, updated.ID, updated.StudentID)
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("count completed lesson: %w", err)
	}
	if !counted {
		s.log.Info("completed lesson already counted", slog.String("lesson_id", updated.ID.String()))
	}

	return updated, nil
}

// Delete removes a pending lesson outright. It obeys the same notice window
// as Cancel; outside it the record stays.
func (s *Service) Delete(ctx context.Context, lessonID uuid.UUID) error {
	lesson, err := s.guard(ctx, lessonID, domain.ActionCancel)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, lesson.ID)
}

func (s *Service) CompletedCount(ctx context.Context, studentID string) (int, error) {
	if strings.TrimSpace(studentID) == "" {
		return 0, validationError("student_id is required")
	}
	return s.repo.CompletedCount(ctx, studentID)
}

func (s *Service) guard(ctx context.Context, lessonID uuid.UUID, action domain.Action) (domain.Lesson, error) {
	if lessonID == uuid.Nil {
		return domain.Lesson{}, validationError("lesson_id is required")
	}

	now, err := s.clock.Now(ctx)
	if err != nil {
		return domain.Lesson{}, err
	}

	lesson, err := s.repo.GetByID(ctx, lessonID)
	if err != nil {
		return domain.Lesson{}, err
	}

	if d := domain.CanTransition(lesson, action, now, s.cfg.CancelNotice); !d.Allowed {
		return domain.Lesson{}, &DeniedError{Reason: d.Reason}
	}
	return lesson, nil
}

func (s *Service) holidaySet(ctx context.Context, year int) domain.DateSet {
	if s.holidays == nil {
		return domain.DateSet{}
	}
	set, err := s.holidays.Holidays(ctx, year)
	if err != nil {
		s.log.Warn("holiday feed unavailable; continuing without holidays",
			slog.Int("year", year),
			slog.Any("err", err),
		)
		return domain.DateSet{}
	}
	return set
}
