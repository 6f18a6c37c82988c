package service

import (
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// SessionWindow is the time authority for one session. Every timing decision
// (writable, reveal, redirect) is derived from it and nothing else.
type SessionWindow struct {
	StartTime *time.Time
	// Duration is in minutes.
	Duration     int
	PackageStart time.Time
	PackageEnd   time.Time
}

// NewSessionWindow combines the stored session timestamps with the package window.
func NewSessionWindow(s *model.QuizSession, p model.PackageWindow) SessionWindow {
	w := SessionWindow{PackageStart: p.TOStart, PackageEnd: p.TOEnd}
	if s != nil {
		w.StartTime = s.StartTime
		w.Duration = s.Duration
	}
	return w
}

// Initialized reports whether both start time and duration are known.
func (w SessionWindow) Initialized() bool {
	return w.StartTime != nil && w.Duration > 0
}

// Deadline returns startTime + duration.
func (w SessionWindow) Deadline() (time.Time, bool) {
	if !w.Initialized() {
		return time.Time{}, false
	}
	return w.StartTime.Add(time.Duration(w.Duration) * time.Minute), true
}

// Remaining is the advisory countdown value, clamped at zero.
func (w SessionWindow) Remaining(now time.Time) time.Duration {
	deadline, ok := w.Deadline()
	if !ok {
		return 0
	}
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Writable reports now < deadline and now < package end.
func (w SessionWindow) Writable(now time.Time) bool {
	deadline, ok := w.Deadline()
	if !ok {
		return false
	}
	return now.Before(deadline) && now.Before(w.PackageEnd)
}

// DeadlinePassed reports now >= deadline.
func (w SessionWindow) DeadlinePassed(now time.Time) bool {
	deadline, ok := w.Deadline()
	if !ok {
		return false
	}
	return !now.Before(deadline)
}

// ClosedByPackage reports now >= package end, regardless of the personal timer.
func (w SessionWindow) ClosedByPackage(now time.Time) bool {
	return !now.Before(w.PackageEnd)
}

// PackageOpen reports TOstart <= now < TOend.
func (w SessionWindow) PackageOpen(now time.Time) bool {
	return !now.Before(w.PackageStart) && now.Before(w.PackageEnd)
}
