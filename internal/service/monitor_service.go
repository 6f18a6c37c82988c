package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ErrPackageNotFound is returned when a monitored package does not exist.
var ErrPackageNotFound = errors.New("package not found")

// ProgressStore lists per-session progress. Implemented by repository.QuizSessionRepository.
type ProgressStore interface {
	ListProgressByPackage(ctx context.Context, packageID int64) ([]repository.SessionProgress, error)
}

// SessionProgressView is one row of the live monitor.
type SessionProgressView struct {
	SessionID        int64      `json:"sessionId"`
	UserID           string     `json:"userId"`
	SubtestID        int64      `json:"subtestId"`
	State            string     `json:"state"`
	Answered         int        `json:"answered"`
	StartTime        *time.Time `json:"startTime"`
	EndTime          *time.Time `json:"endTime"`
	RemainingSeconds int64      `json:"remainingSeconds"`
}

// PackageSnapshot is the monitor state of a package at one instant.
type PackageSnapshot struct {
	PackageID       int64                 `json:"packageId"`
	ClosedByPackage bool                  `json:"closedByPackage"`
	Counts          map[string]int        `json:"counts"`
	Sessions        []SessionProgressView `json:"sessions"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// MonitorService builds live progress snapshots for privileged viewers.
type MonitorService struct {
	progress ProgressStore
	windows  WindowSource
	now      func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(progress ProgressStore, windows WindowSource) *MonitorService {
	return &MonitorService{progress: progress, windows: windows, now: time.Now}
}

// Snapshot returns the derived state of every session of a package. The
// window and the progress rows are fetched in parallel.
func (s *MonitorService) Snapshot(ctx context.Context, packageID int64) (*PackageSnapshot, error) {
	var (
		window model.PackageWindow
		rows   []repository.SessionProgress
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.windows.Window(gctx, packageID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPackageNotFound
			}
			return fmt.Errorf("get package window: %w", err)
		}
		window = w
		return nil
	})
	g.Go(func() error {
		r, err := s.progress.ListProgressByPackage(gctx, packageID)
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	snap := &PackageSnapshot{
		PackageID:       packageID,
		ClosedByPackage: !now.Before(window.TOEnd),
		Counts: map[string]int{
			string(StateNotStarted): 0,
			string(StateInProgress): 0,
			string(StateExpired):    0,
			string(StateSubmitted):  0,
		},
		Sessions:    make([]SessionProgressView, 0, len(rows)),
		GeneratedAt: now,
	}
	for i := range rows {
		sess := &rows[i].QuizSession
		sw := NewSessionWindow(sess, window)
		state := DeriveState(sess, sw, now)
		snap.Counts[string(state)]++
		remaining := sw.Remaining(now)
		if state == StateSubmitted {
			remaining = 0
		}
		snap.Sessions = append(snap.Sessions, SessionProgressView{
			SessionID:        sess.ID,
			UserID:           sess.UserID,
			SubtestID:        sess.SubtestID,
			State:            string(state),
			Answered:         rows[i].Answered,
			StartTime:        sess.StartTime,
			EndTime:          sess.EndTime,
			RemainingSeconds: int64(remaining / time.Second),
		})
	}
	return snap, nil
}
