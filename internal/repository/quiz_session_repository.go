package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// SessionProgress is a session row with its answered-question count, for monitors.
type SessionProgress struct {
	model.QuizSession
	Answered int `json:"answered"`
}

// QuizSessionRepository handles quiz session data access. The row is the
// serialization point for start and close transitions.
type QuizSessionRepository struct {
	pool *pgxpool.Pool
}

// NewQuizSessionRepository creates a new QuizSessionRepository.
func NewQuizSessionRepository(pool *pgxpool.Pool) *QuizSessionRepository {
	return &QuizSessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, package_id, subtest_id, start_time, end_time, duration`

func scanSession(row pgx.Row) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PackageID, &s.SubtestID, &s.StartTime, &s.EndTime, &s.Duration); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by id.
func (r *QuizSessionRepository) GetByID(ctx context.Context, id int64) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = $1`, id))
}

// GetByUserAndSubtest retrieves the caller's session on a subtest.
func (r *QuizSessionRepository) GetByUserAndSubtest(ctx context.Context, userID string, subtestID int64) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions
		 WHERE user_id = $1 AND subtest_id = $2`, userID, subtestID))
}

// GetOrCreate inserts s keyed by (user, package, subtest) or loads the existing
// row into s. created is false when the row already existed.
func (r *QuizSessionRepository) GetOrCreate(ctx context.Context, s *model.QuizSession) (bool, error) {
	created, err := scanSession(r.pool.QueryRow(ctx,
		`INSERT INTO quiz_sessions (user_id, package_id, subtest_id, start_time, duration)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, package_id, subtest_id) DO NOTHING
		 RETURNING `+sessionColumns,
		s.UserID, s.PackageID, s.SubtestID, s.StartTime, s.Duration))
	if err == nil {
		*s = *created
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	// Concurrent first access or a pre-provisioned row.
	existing, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions
		 WHERE user_id = $1 AND package_id = $2 AND subtest_id = $3`,
		s.UserID, s.PackageID, s.SubtestID))
	if err != nil {
		return false, err
	}
	*s = *existing
	return false, nil
}

// MarkStarted sets start_time once. A row that already started is returned unchanged.
func (r *QuizSessionRepository) MarkStarted(ctx context.Context, id int64, at time.Time) (*model.QuizSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`UPDATE quiz_sessions SET start_time = $2
		 WHERE id = $1 AND start_time IS NULL
		 RETURNING `+sessionColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByID(ctx, id)
	}
	return s, err
}

// Finalize sets end_time once. A second call returns the stored end_time with
// already=true.
func (r *QuizSessionRepository) Finalize(ctx context.Context, id int64, at time.Time) (time.Time, bool, error) {
	var endTime time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE quiz_sessions SET end_time = $2
		 WHERE id = $1 AND end_time IS NULL AND start_time IS NOT NULL
		 RETURNING end_time`, id, at,
	).Scan(&endTime)
	if err == nil {
		return endTime, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, err
	}

	s, err := r.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	if s.EndTime != nil {
		return *s.EndTime, true, nil
	}
	return time.Time{}, false, ErrSessionNotStarted
}

// ListProgressByPackage lists every session of a package with its answer count.
func (r *QuizSessionRepository) ListProgressByPackage(ctx context.Context, packageID int64) ([]SessionProgress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, s.package_id, s.subtest_id, s.start_time, s.end_time, s.duration,
		        COUNT(ua.id) AS answered
		 FROM quiz_sessions s
		 LEFT JOIN user_answers ua ON ua.quiz_session_id = s.id
		 WHERE s.package_id = $1
		 GROUP BY s.id
		 ORDER BY s.subtest_id, s.start_time NULLS LAST`, packageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionProgress
	for rows.Next() {
		var p SessionProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.PackageID, &p.SubtestID,
			&p.StartTime, &p.EndTime, &p.Duration, &p.Answered); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
