package lessons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"drivebook/backend/internal/domain"
	"drivebook/backend/internal/store"
)

type fakeRepo struct {
	createFn               func(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error)
	getByIDFn              func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error)
	listForStudentFn       func(ctx context.Context, studentID string, status domain.LessonStatus) ([]domain.Lesson, error)
	listForInstructorDayFn func(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error)
	bookedTimesFn          func(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error)
	updateStatusFn         func(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error)
	deleteFn               func(ctx context.Context, lessonID uuid.UUID) error
	markCountedFn          func(ctx context.Context, lessonID uuid.UUID, studentID string) (bool, error)
	completedCountFn       func(ctx context.Context, studentID string) (int, error)
}

func (f *fakeRepo) Create(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, lesson)
}

func (f *fakeRepo) GetByID(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
	if f.getByIDFn == nil {
		panic("GetByID not configured")
	}
	return f.getByIDFn(ctx, lessonID)
}

func (f *fakeRepo) ListForStudent(ctx context.Context, studentID string, status domain.LessonStatus) ([]domain.Lesson, error) {
	if f.listForStudentFn == nil {
		panic("ListForStudent not configured")
	}
	return f.listForStudentFn(ctx, studentID, status)
}

func (f *fakeRepo) ListForInstructorDay(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error) {
	if f.listForInstructorDayFn == nil {
		panic("ListForInstructorDay not configured")
	}
	return f.listForInstructorDayFn(ctx, instructorID, date)
}

func (f *fakeRepo) BookedTimes(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error) {
	if f.bookedTimesFn == nil {
		return nil, nil
	}
	return f.bookedTimesFn(ctx, instructorID, vehicleID, date)
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error) {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, lessonID, status)
}

func (f *fakeRepo) Delete(ctx context.Context, lessonID uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, lessonID)
}

func (f *fakeRepo) MarkCompletedCounted(ctx context.Context, lessonID uuid.UUID, studentID string) (bool, error) {
	if f.markCountedFn == nil {
		panic("MarkCompletedCounted not configured")
	}
	return f.markCountedFn(ctx, lessonID, studentID)
}

func (f *fakeRepo) CompletedCount(ctx context.Context, studentID string) (int, error) {
	if f.completedCountFn == nil {
		panic("CompletedCount not configured")
	}
	return f.completedCountFn(ctx, studentID)
}

type fakeClock struct {
	now time.Time
	err error
}

func (f *fakeClock) Now(ctx context.Context) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.now, nil
}

type fakeHolidays struct {
	set domain.DateSet
	err error
}

func (f *fakeHolidays) Holidays(ctx context.Context, year int) (domain.DateSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

var testHours = domain.WorkingHours{
	DayStart:    domain.TimeOfDay{Hour: 8},
	DayEnd:      domain.TimeOfDay{Hour: 18},
	SlotMinutes: 60,
}

func newTestService(repo *fakeRepo, clock *fakeClock, holidays *fakeHolidays) *Service {
	return NewService(repo, clock, holidays, Config{Hours: testHours}, nil)
}

func tod(h, m int) domain.TimeOfDay {
	return domain.TimeOfDay{Hour: h, Minute: m}
}

func TestAvailableSlots_ValidationErrorType(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeClock{now: time.Now()}, &fakeHolidays{})

	_, err := svc.AvailableSlots(context.Background(), AvailabilityInput{
		VehicleID: "veh-1",
		Date:      time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if vErr.Error() != "instructor_id is required" {
		t.Fatalf("error = %q, want %q", vErr.Error(), "instructor_id is required")
	}
}

func TestAvailableSlots_ClockFailureStopsDecision(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeClock{err: store.ErrClockUnavailable}, &fakeHolidays{})

	_, err := svc.AvailableSlots(context.Background(), AvailabilityInput{
		InstructorID: "inst-1",
		VehicleID:    "veh-1",
		Date:         time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, store.ErrClockUnavailable) {
		t.Fatalf("error = %v, want %v", err, store.ErrClockUnavailable)
	}
}

func TestAvailableSlots_HolidayFeedFailureIsNonFatal(t *testing.T) {
	repo := &fakeRepo{
		bookedTimesFn: func(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)}, &fakeHolidays{err: errors.New("feed down")})

	slots, err := svc.AvailableSlots(context.Background(), AvailabilityInput{
		InstructorID: "inst-1",
		VehicleID:    "veh-1",
		Date:         time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected slots despite holiday feed failure")
	}
}

func TestAvailableSlots_OmitsBookedSlot(t *testing.T) {
	repo := &fakeRepo{
		bookedTimesFn: func(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error) {
			if instructorID != "inst-1" || vehicleID != "veh-1" {
				t.Errorf("booked times queried for %s/%s", instructorID, vehicleID)
			}
			return []domain.TimeOfDay{tod(9, 0)}, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	slots, err := svc.AvailableSlots(context.Background(), AvailabilityInput{
		InstructorID: "inst-1",
		VehicleID:    "veh-1",
		Date:         time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	for _, s := range slots {
		if s == tod(9, 0) {
			t.Fatalf("booked 09:00 slot offered")
		}
	}
	if len(slots) != 9 {
		t.Fatalf("len(slots) = %d, want 9", len(slots))
	}
}

func validDraft() BookingDraft {
	return BookingDraft{
		SchoolID:     "school-1",
		InstructorID: "inst-1",
		StudentID:    "stud-1",
		VehicleID:    "veh-1",
		BookedBy:     "stud-1",
		Date:         time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
		Time:         tod(10, 0),
		Kind:         domain.LessonKindPractical,
	}
}

func TestBook_MissingFields(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeClock{now: time.Now()}, &fakeHolidays{})

	draft := validDraft()
	draft.StudentID = " "

	_, err := svc.Book(context.Background(), draft)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if vErr.Error() != "student_id is required" {
		t.Fatalf("error = %q, want %q", vErr.Error(), "student_id is required")
	}

	draft = validDraft()
	draft.Kind = "remote"
	_, err = svc.Book(context.Background(), draft)
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestBook_OutOfWindow(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeRepo{}, &fakeClock{now: now}, &fakeHolidays{})

	draft := validDraft()
	draft.Date = time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC) // eight days out

	_, err := svc.Book(context.Background(), draft)
	if !errors.Is(err, domain.ErrOutOfWindow) {
		t.Fatalf("error = %v, want %v", err, domain.ErrOutOfWindow)
	}
}

func TestBook_SlotAlreadyTaken(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		bookedTimesFn: func(ctx context.Context, instructorID, vehicleID string, date time.Time) ([]domain.TimeOfDay, error) {
			return []domain.TimeOfDay{tod(10, 0)}, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: now}, &fakeHolidays{})

	_, err := svc.Book(context.Background(), validDraft())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}
}

func TestBook_CreatesPendingLesson(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	var got domain.Lesson
	repo := &fakeRepo{
		createFn: func(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
			got = lesson
			lesson.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
			return lesson, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: now}, &fakeHolidays{})

	created, err := svc.Book(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if got.Status != domain.LessonStatusPending {
		t.Fatalf("status = %q, want pending", got.Status)
	}
	if got.ScheduledTime != tod(10, 0) {
		t.Fatalf("time = %v, want 10:00", got.ScheduledTime)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected assigned id")
	}
}

func TestBook_PropagatesStoreConflict(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		createFn: func(ctx context.Context, lesson domain.Lesson) (domain.Lesson, error) {
			return domain.Lesson{}, store.ErrConflict
		},
	}
	svc := newTestService(repo, &fakeClock{now: now}, &fakeHolidays{})

	_, err := svc.Book(context.Background(), validDraft())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}
}

func storedLesson(status domain.LessonStatus, date time.Time, at domain.TimeOfDay) domain.Lesson {
	return domain.Lesson{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		SchoolID:      "school-1",
		InstructorID:  "inst-1",
		StudentID:     "stud-1",
		VehicleID:     "veh-1",
		ScheduledDate: date,
		ScheduledTime: at,
		Kind:          domain.LessonKindPractical,
		Status:        status,
	}
}

func TestCancel_DeniedInsideNoticeWindow(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusPending, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), tod(10, 0))
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
	}
	// 07:30 leaves only 2.5h of notice.
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC)}, &fakeHolidays{})

	_, err := svc.Cancel(context.Background(), lesson.ID)
	var dErr *DeniedError
	if !errors.As(err, &dErr) {
		t.Fatalf("error type = %T, want *DeniedError", err)
	}
	if dErr.Reason != domain.DenyTooLateToCancel {
		t.Fatalf("reason = %q, want %q", dErr.Reason, domain.DenyTooLateToCancel)
	}
}

func TestCancel_AllowedOutsideNoticeWindow(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusPending, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), tod(10, 0))
	var updatedTo domain.LessonStatus
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
		updateStatusFn: func(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error) {
			updatedTo = status
			lesson.Status = status
			return lesson, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	out, err := svc.Cancel(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if updatedTo != domain.LessonStatusCancelled {
		t.Fatalf("updated to %q, want cancelled", updatedTo)
	}
	if out.Status != domain.LessonStatusCancelled {
		t.Fatalf("returned status = %q, want cancelled", out.Status)
	}
}

func TestComplete_CountsOnceAndTwiceIsNoop(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusPending, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), tod(10, 0))
	var countedLesson uuid.UUID
	counted := false
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
		updateStatusFn: func(ctx context.Context, lessonID uuid.UUID, status domain.LessonStatus) (domain.Lesson, error) {
			lesson.Status = status
			return lesson, nil
		},
		markCountedFn: func(ctx context.Context, lessonID uuid.UUID, studentID string) (bool, error) {
			countedLesson = lessonID
			if counted {
				return false, nil
			}
			counted = true
			return true, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	out, err := svc.Complete(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out.Status != domain.LessonStatusCompleted {
		t.Fatalf("status = %q, want completed", out.Status)
	}
	if countedLesson != lesson.ID {
		t.Fatalf("counted lesson = %s, want %s", countedLesson, lesson.ID)
	}
}

func TestComplete_DeniedBeforeStart(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusPending, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), tod(10, 0))
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	_, err := svc.Complete(context.Background(), lesson.ID)
	var dErr *DeniedError
	if !errors.As(err, &dErr) {
		t.Fatalf("error type = %T, want *DeniedError", err)
	}
	if dErr.Reason != domain.DenyTooEarlyToComplete {
		t.Fatalf("reason = %q, want %q", dErr.Reason, domain.DenyTooEarlyToComplete)
	}
}

func TestTransitions_TerminalLessonAlwaysDenied(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusCancelled, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), tod(10, 0))
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	for name, call := range map[string]func() error{
		"cancel": func() error {
			_, err := svc.Cancel(context.Background(), lesson.ID)
			return err
		},
		"complete": func() error {
			_, err := svc.Complete(context.Background(), lesson.ID)
			return err
		},
		"delete": func() error {
			return svc.Delete(context.Background(), lesson.ID)
		},
	} {
		err := call()
		var dErr *DeniedError
		if !errors.As(err, &dErr) {
			t.Fatalf("%s: error type = %T, want *DeniedError", name, err)
		}
		if dErr.Reason != domain.DenyAlreadyFinal {
			t.Fatalf("%s: reason = %q, want %q", name, dErr.Reason, domain.DenyAlreadyFinal)
		}
	}
}

func TestDelete_AllowedOutsideNoticeWindow(t *testing.T) {
	lesson := storedLesson(domain.LessonStatusPending, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), tod(10, 0))
	deleted := false
	repo := &fakeRepo{
		getByIDFn: func(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error) {
			return lesson, nil
		},
		deleteFn: func(ctx context.Context, lessonID uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(repo, &fakeClock{now: time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)}, &fakeHolidays{})

	if err := svc.Delete(context.Background(), lesson.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !deleted {
		t.Fatalf("repo delete not called")
	}
}

func TestGuard_ClockFailureStopsTransition(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeClock{err: store.ErrClockUnavailable}, &fakeHolidays{})

	_, err := svc.Cancel(context.Background(), uuid.MustParse("00000000-0000-0000-0000-000000000010"))
	if !errors.Is(err, store.ErrClockUnavailable) {
		t.Fatalf("error = %v, want %v", err, store.ErrClockUnavailable)
	}
}

func TestCompletedCount_Validation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeClock{now: time.Now()}, &fakeHolidays{})

	_, err := svc.CompletedCount(context.Background(), "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}
