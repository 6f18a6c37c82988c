package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// UserAnswerRepository is the durable answer store keyed by (session, question).
type UserAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewUserAnswerRepository creates a new UserAnswerRepository.
func NewUserAnswerRepository(pool *pgxpool.Pool) *UserAnswerRepository {
	return &UserAnswerRepository{pool: pool}
}

// Upsert writes the answer for (sessionID, questionID) only while the session is
// writable at `at`, judged from the stored start_time, duration, end_time and
// package to_end. Repeated calls overwrite. Returns ErrSessionClosed when the
// window predicate matched nothing.
func (r *UserAnswerRepository) Upsert(ctx context.Context, sessionID, questionID int64, v model.AnswerValue, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_answers (quiz_session_id, question_id, package_id, user_id, answer_choice, essay_answer, updated_at)
		 SELECT s.id, $2::bigint, s.package_id, s.user_id, $3::int, $4::text, $5::timestamptz
		 FROM quiz_sessions s
		 JOIN packages p ON p.id = s.package_id
		 WHERE s.id = $1
		   AND s.end_time IS NULL
		   AND s.start_time IS NOT NULL
		   AND $5::timestamptz < s.start_time + make_interval(mins => s.duration)
		   AND $5::timestamptz < p.to_end
		 ON CONFLICT (quiz_session_id, question_id) DO UPDATE
		 SET answer_choice = EXCLUDED.answer_choice,
		     essay_answer  = EXCLUDED.essay_answer,
		     updated_at    = EXCLUDED.updated_at`,
		sessionID, questionID, v.Choice, v.Essay, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionClosed
	}
	return nil
}

// ListBySession retrieves every stored answer of a session.
func (r *UserAnswerRepository) ListBySession(ctx context.Context, sessionID int64) ([]model.UserAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT quiz_session_id, question_id, answer_choice, essay_answer, updated_at
		 FROM user_answers WHERE quiz_session_id = $1
		 ORDER BY question_id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.UserAnswer{}
	for rows.Next() {
		var a model.UserAnswer
		if err := rows.Scan(&a.QuizSessionID, &a.QuestionID, &a.AnswerChoice, &a.EssayAnswer, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
