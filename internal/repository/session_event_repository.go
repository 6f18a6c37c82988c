package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// SessionEventRepository is the append-only audit log of session events.
type SessionEventRepository struct {
	pool *pgxpool.Pool
}

// NewSessionEventRepository creates a new SessionEventRepository.
func NewSessionEventRepository(pool *pgxpool.Pool) *SessionEventRepository {
	return &SessionEventRepository{pool: pool}
}

// InsertBatch appends events in one statement. Event ids are unique, so a
// requeued event that already landed is skipped.
func (r *SessionEventRepository) InsertBatch(ctx context.Context, events []model.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}

	n := len(events)
	ids := make([]uuid.UUID, 0, n)
	kinds := make([]string, 0, n)
	sessions := make([]int64, 0, n)
	users := make([]string, 0, n)
	packages := make([]int64, 0, n)
	subtests := make([]int64, 0, n)
	questions := make([]*int64, 0, n)
	occurred := make([]time.Time, 0, n)

	for _, ev := range events {
		ids = append(ids, ev.ID)
		kinds = append(kinds, string(ev.Kind))
		sessions = append(sessions, ev.SessionID)
		users = append(users, ev.UserID)
		packages = append(packages, ev.PackageID)
		subtests = append(subtests, ev.SubtestID)
		questions = append(questions, ev.QuestionID)
		occurred = append(occurred, ev.OccurredAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_events (id, kind, quiz_session_id, user_id, package_id, subtest_id, question_id, occurred_at)
		 SELECT * FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::bigint[],
			$4::text[],
			$5::bigint[],
			$6::bigint[],
			$7::bigint[],
			$8::timestamptz[]
		 )
		 ON CONFLICT (id) DO NOTHING`,
		ids, kinds, sessions, users, packages, subtests, questions, occurred,
	)
	return err
}

// Insert appends a single event.
func (r *SessionEventRepository) Insert(ctx context.Context, ev model.SessionEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_events (id, kind, quiz_session_id, user_id, package_id, subtest_id, question_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Kind), ev.SessionID, ev.UserID, ev.PackageID, ev.SubtestID, ev.QuestionID, ev.OccurredAt,
	)
	return err
}
