package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// SubtestRepository reads subtests.
type SubtestRepository struct {
	pool *pgxpool.Pool
}

// NewSubtestRepository creates a new SubtestRepository.
func NewSubtestRepository(pool *pgxpool.Pool) *SubtestRepository {
	return &SubtestRepository{pool: pool}
}

// GetByID retrieves a subtest by id.
func (r *SubtestRepository) GetByID(ctx context.Context, id int64) (*model.Subtest, error) {
	s := &model.Subtest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, package_id, type, duration FROM subtests WHERE id = $1`, id,
	).Scan(&s.ID, &s.PackageID, &s.Type, &s.Duration)
	if err != nil {
		return nil, err
	}
	return s, nil
}
