package domain

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "pending"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCancelled LessonStatus = "cancelled"
)

// IsFinal reports whether the status is terminal. No transition leaves a
// completed or cancelled lesson.
func (s LessonStatus) IsFinal() bool {
	return s == LessonStatusCompleted || s == LessonStatusCancelled
}

type LessonKind string

const (
	LessonKindPractical LessonKind = "practical"
	LessonKindTheory    LessonKind = "theory"
)

type Lesson struct {
	bun.BaseModel `bun:"table:lessons"`

	ID            uuid.UUID    `bun:"id,pk,type:uuid"`
	SchoolID      string       `bun:"school_id,notnull"`
	InstructorID  string       `bun:"instructor_id,notnull"`
	StudentID     string       `bun:"student_id,notnull"`
	VehicleID     string       `bun:"vehicle_id,notnull"`
	ScheduledDate time.Time    `bun:"scheduled_date,notnull,type:date"`
	ScheduledTime TimeOfDay    `bun:"scheduled_time,notnull,type:time"`
	Kind          LessonKind   `bun:"kind,notnull"`
	Status        LessonStatus `bun:"status,notnull"`
	BookedBy      string       `bun:"booked_by,notnull"`
	CreatedAt     time.Time    `bun:"created_at,notnull"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull"`
}

// StartsAt combines the civil scheduled date and time-of-day into the
// lesson's start instant.
func (l *Lesson) StartsAt() time.Time {
	return l.ScheduledTime.On(l.ScheduledDate)
}

func (l *Lesson) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if l.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			l.ID = id
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if l.UpdatedAt.IsZero() {
			l.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		l.UpdatedAt = now
	}
	return nil
}

// TimeOfDay is a wall-clock time (24h hour and minute) with no date or zone
// attached. The zero value is midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS"; seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Minutes() < o.Minutes()
}

// On anchors the time-of-day to the civil date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute), nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = TimeOfDay{Hour: v.Hour(), Minute: v.Minute()}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid time of day %s", b)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeOfDayFrom extracts the wall-clock component of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

const civilDateLayout = "2006-01-02"

// DateSet is a set of civil dates, keyed by calendar day.
type DateSet map[string]struct{}

func (s DateSet) Add(t time.Time) {
	s[t.Format(civilDateLayout)] = struct{}{}
}

func (s DateSet) Contains(t time.Time) bool {
	_, ok := s[t.Format(civilDateLayout)]
	return ok
}

// SameDate reports whether two instants fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateBefore reports whether a's calendar day is strictly before b's.
func DateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
