package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"drivebook/backend/internal/domain"
	"drivebook/backend/internal/service/lessons"
	"drivebook/backend/internal/store"
)

const dateLayout = "2006-01-02"

type LessonsHandler struct {
	svc lessonsService
	log *slog.Logger
}

type lessonsService interface {
	AvailableSlots(ctx context.Context, in lessons.AvailabilityInput) ([]domain.TimeOfDay, error)
	Book(ctx context.Context, draft lessons.BookingDraft) (domain.Lesson, error)
	ListForStudent(ctx context.Context, studentID string) ([]domain.Lesson, error)
	ListForInstructorDay(ctx context.Context, instructorID string, date time.Time) ([]domain.Lesson, error)
	Cancel(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error)
	Complete(ctx context.Context, lessonID uuid.UUID) (domain.Lesson, error)
	Delete(ctx context.Context, lessonID uuid.UUID) error
	CompletedCount(ctx context.Context, studentID string) (int, error)
}

func NewLessonsHandler(svc lessonsService, log *slog.Logger) *LessonsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LessonsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.lessons")),
	}
}

type lessonResponse struct {
	ID           string           `json:"id"`
	SchoolID     string           `json:"school_id"`
	InstructorID string           `json:"instructor_id"`
	StudentID    string           `json:"student_id"`
	VehicleID    string           `json:"vehicle_id"`
	Date         string           `json:"date"`
	Time         domain.TimeOfDay `json:"time"`
	Kind         string           `json:"kind"`
	Status       string           `json:"status"`
	BookedBy     string           `json:"booked_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toLessonResponse(l domain.Lesson) lessonResponse {
	return lessonResponse{
		ID:           l.ID.String(),
		SchoolID:     l.SchoolID,
		InstructorID: l.InstructorID,
		StudentID:    l.StudentID,
		VehicleID:    l.VehicleID,
		Date:         l.ScheduledDate.Format(dateLayout),
		Time:         l.ScheduledTime,
		Kind:         string(l.Kind),
		Status:       string(l.Status),
		BookedBy:     l.BookedBy,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// GET /v1/slots?instructor_id=&vehicle_id=&date=YYYY-MM-DD
func (h *LessonsHandler) AvailableSlots(c *gin.Context) {
	log := h.log.With(slog.String("handler", "AvailableSlots"))

	date, ok := h.parseDateQuery(c, log)
	if !ok {
		return
	}

	slots, err := h.svc.AvailableSlots(c.Request.Context(), lessons.AvailabilityInput{
		InstructorID: c.Query("instructor_id"),
		VehicleID:    c.Query("vehicle_id"),
		Date:         date,
	})
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Debug("slots computed",
		slog.String("instructor_id", c.Query("instructor_id")),
		slog.String("date", c.Query("date")),
		slog.Int("count", len(slots)),
	)
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type bookRequest struct {
	SchoolID     string `json:"school_id" binding:"required"`
	InstructorID string `json:"instructor_id" binding:"required"`
	StudentID    string `json:"student_id" binding:"required"`
	VehicleID    string `json:"vehicle_id" binding:"required"`
	BookedBy     string `json:"booked_by" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
}

// POST /v1/lessons
func (h *LessonsHandler) Book(c *gin.Context) {
	log := h.log.With(slog.String("handler", "Book"))

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_date"), slog.String("date", req.Date))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	slot, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_time"), slog.String("time", req.Time))
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must be HH:MM"})
		return
	}

	lesson, err := h.svc.Book(c.Request.Context(), lessons.BookingDraft{
		SchoolID:     req.SchoolID,
		InstructorID: req.InstructorID,
		StudentID:    req.StudentID,
		VehicleID:    req.VehicleID,
		BookedBy:     req.BookedBy,
		Date:         date,
		Time:         slot,
		Kind:         domain.LessonKind(req.Kind),
	})
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Info("lesson booked",
		slog.String("lesson_id", lesson.ID.String()),
		slog.String("instructor_id", lesson.InstructorID),
		slog.String("student_id", lesson.StudentID),
		slog.String("date", lesson.ScheduledDate.Format(dateLayout)),
		slog.String("time", lesson.ScheduledTime.String()),
	)
	c.JSON(http.StatusCreated, gin.H{"lesson": toLessonResponse(lesson)})
}

// GET /v1/lessons?student_id= | ?instructor_id=&date=YYYY-MM-DD
func (h *LessonsHandler) List(c *gin.Context) {
	log := h.log.With(slog.String("handler", "List"))

	if studentID := c.Query("student_id"); studentID != "" {
		rows, err := h.svc.ListForStudent(c.Request.Context(), studentID)
		if err != nil {
			h.writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lessons": toLessonResponses(rows)})
		return
	}

	instructorID := c.Query("instructor_id")
	if instructorID == "" {
		log.Warn("invalid request", slog.String("reason", "missing_subject"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id or instructor_id is required"})
		return
	}
	date, ok := h.parseDateQuery(c, log)
	if !ok {
		return
	}

	rows, err := h.svc.ListForInstructorDay(c.Request.Context(), instructorID, date)
	if err != nil {
		h.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": toLessonResponses(rows)})
}

// POST /v1/lessons/:id/cancel
func (h *LessonsHandler) Cancel(c *gin.Context) {
	log := h.log.With(slog.String("handler", "Cancel"))

	id, ok := h.parseLessonID(c, log)
	if !ok {
		return
	}

	lesson, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Info("lesson cancelled", slog.String("lesson_id", lesson.ID.String()))
	c.JSON(http.StatusOK, gin.H{"lesson": toLessonResponse(lesson)})
}

// POST /v1/lessons/:id/complete
func (h *LessonsHandler) Complete(c *gin.Context) {
	log := h.log.With(slog.String("handler", "Complete"))

	id, ok := h.parseLessonID(c, log)
	if !ok {
		return
	}

	lesson, err := h.svc.Complete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Info("lesson completed", slog.String("lesson_id", lesson.ID.String()))
	c.JSON(http.StatusOK, gin.H{"lesson": toLessonResponse(lesson)})
}

// DELETE /v1/lessons/:id
func (h *LessonsHandler) Delete(c *gin.Context) {
	log := h.log.With(slog.String("handler", "Delete"))

	id, ok := h.parseLessonID(c, log)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, log, err)
		return
	}

	log.Info("lesson deleted", slog.String("lesson_id", id.String()))
	c.Status(http.StatusNoContent)
}

// GET /v1/students/:id/completed-count
func (h *LessonsHandler) CompletedCount(c *gin.Context) {
	log := h.log.With(slog.String("handler", "CompletedCount"))

	count, err := h.svc.CompletedCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": count})
}

func toLessonResponses(rows []domain.Lesson) []lessonResponse {
	out := make([]lessonResponse, 0, len(rows))
	for _, l := range rows {
		out = append(out, toLessonResponse(l))
	}
	return out
}

func (h *LessonsHandler) parseDateQuery(c *gin.Context, log *slog.Logger) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		log.Warn("invalid request", slog.String("reason", "missing_date"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return time.Time{}, false
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_date"), slog.String("date", raw))
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func (h *LessonsHandler) parseLessonID(c *gin.Context, log *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "lesson id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service and store failures to responses. Every kind is
// recoverable at this boundary; nothing here retries.
func (h *LessonsHandler) writeError(c *gin.Context, log *slog.Logger, err error) {
	var vErr *lessons.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}

	var dErr *lessons.DeniedError
	if errors.As(err, &dErr) {
		log.Info("transition denied", slog.String("reason", string(dErr.Reason)))
		c.JSON(http.StatusConflict, gin.H{"error": "transition denied", "reason": string(dErr.Reason)})
		return
	}

	switch {
	case errors.Is(err, domain.ErrOutOfWindow):
		log.Info("date out of booking window")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "date is outside the booking window"})
	case errors.Is(err, store.ErrConflict):
		log.Info("slot unavailable")
		c.JSON(http.StatusConflict, gin.H{"error": "that slot is no longer available"})
	case errors.Is(err, store.ErrNotFound):
		log.Info("lesson not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
	case errors.Is(err, store.ErrClockUnavailable):
		log.Error("server clock unavailable", slog.Any("err", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trusted time source unavailable"})
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
