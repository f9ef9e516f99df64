package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LessonTally records that a completed lesson has been counted towards its
// student's total. One row per lesson, so a retried completion can never
// count twice.
type LessonTally struct {
	bun.BaseModel `bun:"table:lesson_tally"`

	LessonID  uuid.UUID `bun:"lesson_id,pk,type:uuid"`
	StudentID string    `bun:"student_id,notnull"`
	CountedAt time.Time `bun:"counted_at,notnull"`
}
