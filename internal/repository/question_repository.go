package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, subtest_id, index, content, image_url, type, score, explanation, correct_answer_choice`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.SubtestID, &q.Index, &q.Content, &q.ImageURL,
		&q.Type, &q.Score, &q.Explanation, &q.CorrectAnswerChoice)
}

// ListBySubtest retrieves all questions of a subtest ordered by index, with
// their answer options ordered by option index.
func (r *QuestionRepository) ListBySubtest(ctx context.Context, subtestID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions WHERE subtest_id = $1
		 ORDER BY index, id`, subtestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		q.Answers = []model.AnswerOption{}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByID retrieves one question with its answer options.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	var q model.Question
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err := scanQuestion(row, &q); err != nil {
		return nil, err
	}
	q.Answers = []model.AnswerOption{}

	questions := []model.Question{q}
	if err := r.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return &questions[0], nil
}

func (r *QuestionRepository) attachAnswers(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]int64, len(questions))
	pos := make(map[int64]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		pos[q.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, index, content
		 FROM answers WHERE question_id = ANY($1)
		 ORDER BY question_id, index`, ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var qid int64
		var a model.AnswerOption
		if err := rows.Scan(&qid, &a.Index, &a.Content); err != nil {
			return err
		}
		if i, ok := pos[qid]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	return rows.Err()
}
