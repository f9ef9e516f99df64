package domain

import (
	"errors"
	"time"
)

// ErrOutOfWindow marks a candidate date outside the forward booking horizon.
var ErrOutOfWindow = errors.New("date outside booking window")

// WorkingHours describes the teaching day shared by a school's instructors:
// lessons start every SlotMinutes from DayStart, and the last lesson must end
// by DayEnd.
type WorkingHours struct {
	DayStart    TimeOfDay
	DayEnd      TimeOfDay
	SlotMinutes int
}

// Slots enumerates the configured lesson start times, ascending.
func (w WorkingHours) Slots() []TimeOfDay {
	if w.SlotMinutes <= 0 {
		return nil
	}
	out := make([]TimeOfDay, 0, 16)
	for m := w.DayStart.Minutes(); m+w.SlotMinutes <= w.DayEnd.Minutes(); m += w.SlotMinutes {
		out = append(out, TimeOfDay{Hour: m / 60, Minute: m % 60})
	}
	return out
}

// AvailableSlots computes the offerable lesson start times for one
// instructor/vehicle on one candidate date.
//
// The result is empty for weekends, holidays and dates whose calendar day is
// already past. Slots taken by an existing booking are removed, and on the
// current day so is every slot earlier than now's wall-clock time. Slots are
// ascending and unique.
//
// The caller supplies holidays and booked times; this function performs no
// I/O and reads no clock besides the injected now.
func AvailableSlots(hours WorkingHours, date, now time.Time, holidays DateSet, booked []TimeOfDay) []TimeOfDay {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return nil
	}
	if holidays.Contains(date) {
		return nil
	}
	// Date selection upstream already rejects past dates; keep the check so a
	// stale caller can never be offered a slot in the past.
	if DateBefore(date, now) {
		return nil
	}

	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Minutes()] = struct{}{}
	}

	sameDay := SameDate(date, now)
	cutoff := TimeOfDayFrom(now)

	out := make([]TimeOfDay, 0, 16)
	for _, slot := range hours.Slots() {
		if _, ok := taken[slot.Minutes()]; ok {
			continue
		}
		if sameDay && slot.Before(cutoff) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// WithinBookingWindow reports whether date falls inside the closed interval
// [now's date, now's date + windowDays]. A date exactly windowDays out is the
// last valid day.
func WithinBookingWindow(date, now time.Time, windowDays int) bool {
	if DateBefore(date, now) {
		return false
	}
	last := now.AddDate(0, 0, windowDays)
	return !DateBefore(last, date)
}
