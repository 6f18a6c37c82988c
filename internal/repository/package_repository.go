package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tryout-backend/internal/model"
)

// PackageRepository reads packages produced by the authoring collaborator.
type PackageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository creates a new PackageRepository.
func NewPackageRepository(pool *pgxpool.Pool) *PackageRepository {
	return &PackageRepository{pool: pool}
}

// GetByID retrieves a package by id.
func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*model.Package, error) {
	p := &model.Package{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, kind, class_id, to_start, to_end
		 FROM packages WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Kind, &p.ClassID, &p.TOStart, &p.TOEnd)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetWindow retrieves only the time window of a package.
func (r *PackageRepository) GetWindow(ctx context.Context, id int64) (*model.PackageWindow, error) {
	w := &model.PackageWindow{PackageID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT to_start, to_end FROM packages WHERE id = $1`, id,
	).Scan(&w.TOStart, &w.TOEnd)
	if err != nil {
		return nil, err
	}
	return w, nil
}
