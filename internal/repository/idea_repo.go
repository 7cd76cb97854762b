package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ossideas/internal/domain"
)

// IdeaRepository define lectura del catalogo de ideas.
type IdeaRepository interface {
	List(ctx context.Context, filter domain.IdeaFilter) ([]domain.Idea, int, error)
	GetByID(ctx context.Context, id string) (domain.Idea, error)
	Related(ctx context.Context, id string, limit int) ([]domain.Idea, error)
}

type PgIdeaRepository struct {
	pool *pgxpool.Pool
}

func NewPgIdeaRepository(pool *pgxpool.Pool) *PgIdeaRepository {
	return &PgIdeaRepository{pool: pool}
}

const ideaColumns = `
	id, repo_full_name, name, tagline, analysis, categories, license,
	stars, opportunity_score, created_at, updated_at
`

func (r *PgIdeaRepository) List(ctx context.Context, filter domain.IdeaFilter) ([]domain.Idea, int, error) {
	where, args := buildIdeaFilter(filter)

	countQuery := "SELECT COUNT(*) FROM ideas" + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "opportunity_score DESC"
	switch filter.Sort {
	case domain.IdeaSortStars:
		order = "stars DESC"
	case domain.IdeaSortNewest:
		order = "created_at DESC"
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	query := fmt.Sprintf(
		"SELECT %s FROM ideas%s ORDER BY %s LIMIT $%d OFFSET $%d",
		ideaColumns, where, order, limitArg, offsetArg,
	)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ideas, err := scanIdeas(rows)
	if err != nil {
		return nil, 0, err
	}
	return ideas, total, nil
}

func (r *PgIdeaRepository) GetByID(ctx context.Context, id string) (domain.Idea, error) {
	const query = `
		SELECT ` + ideaColumns + `, embedding IS NOT NULL
		FROM ideas
		WHERE id = $1
	`
	var idea domain.Idea
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&idea.ID,
		&idea.RepoFullName,
		&idea.Name,
		&idea.Tagline,
		&idea.Analysis,
		&idea.Categories,
		&idea.License,
		&idea.Stars,
		&idea.OpportunityScore,
		&idea.CreatedAt,
		&idea.UpdatedAt,
		&idea.HasEmbedding,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Idea{}, err
	}
	return idea, err
}

func (r *PgIdeaRepository) Related(ctx context.Context, id string, limit int) ([]domain.Idea, error) {
	if limit <= 0 {
		limit = 6
	}
	const query = `
		SELECT ` + ideaColumns + `
		FROM ideas
		WHERE id <> $1
		  AND embedding IS NOT NULL
		ORDER BY embedding <=> (SELECT embedding FROM ideas WHERE id = $1)
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIdeas(rows)
}

func buildIdeaFilter(filter domain.IdeaFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR tagline ILIKE $%d)", n, n))
	}
	if len(filter.Categories) > 0 {
		args = append(args, filter.Categories)
		clauses = append(clauses, fmt.Sprintf("categories && $%d", len(args)))
	}
	if filter.MinStars > 0 {
		args = append(args, filter.MinStars)
		clauses = append(clauses, fmt.Sprintf("stars >= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanIdeas(rows pgxRows) ([]domain.Idea, error) {
	var ideas []domain.Idea
	for rows.Next() {
		var idea domain.Idea
		if err := rows.Scan(
			&idea.ID,
			&idea.RepoFullName,
			&idea.Name,
			&idea.Tagline,
			&idea.Analysis,
			&idea.Categories,
			&idea.License,
			&idea.Stars,
			&idea.OpportunityScore,
			&idea.CreatedAt,
			&idea.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ideas, nil
}

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
