package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ossideas/internal/domain"
	"ossideas/internal/repository"
)

const (
	defaultIdeasPerPage = 12
	maxIdeasPerPage     = 50
	relatedIdeasLimit   = 6
)

var ErrIdeaNotFound = errors.New("idea not found")

// IdeaService aplica las reglas de listado del catalogo de ideas.
type IdeaService struct {
	logger *zap.Logger
	ideas  repository.IdeaRepository
}

func NewIdeaService(logger *zap.Logger, ideas repository.IdeaRepository) *IdeaService {
	return &IdeaService{logger: logger, ideas: ideas}
}

// List normaliza filtro y paginacion antes de consultar.
func (s *IdeaService) List(ctx context.Context, filter domain.IdeaFilter) (domain.IdeaPage, error) {
	filter = normalizeIdeaFilter(filter)

	items, total, err := s.ideas.List(ctx, filter)
	if err != nil {
		return domain.IdeaPage{}, err
	}
	return domain.IdeaPage{
		Items:   items,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

func (s *IdeaService) Get(ctx context.Context, id string) (domain.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Idea{}, ErrIdeaNotFound
		}
		return domain.Idea{}, err
	}
	return idea, nil
}

// Related devuelve las ideas mas cercanas por embedding. Una idea sin
// embedding no tiene vecinas.
func (s *IdeaService) Related(ctx context.Context, id string) ([]domain.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !idea.HasEmbedding {
		return []domain.Idea{}, nil
	}
	related, err := s.ideas.Related(ctx, id, relatedIdeasLimit)
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []domain.Idea{}
	}
	return related, nil
}

func normalizeIdeaFilter(filter domain.IdeaFilter) domain.IdeaFilter {
	filter.Search = strings.TrimSpace(filter.Search)

	categories := filter.Categories[:0]
	for _, category := range filter.Categories {
		if trimmed := strings.TrimSpace(category); trimmed != "" {
			categories = append(categories, trimmed)
		}
	}
	filter.Categories = categories

	if filter.MinStars < 0 {
		filter.MinStars = 0
	}
	switch filter.Sort {
	case domain.IdeaSortScore, domain.IdeaSortStars, domain.IdeaSortNewest:
	default:
		filter.Sort = domain.IdeaSortScore
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultIdeasPerPage
	}
	if filter.PerPage > maxIdeasPerPage {
		filter.PerPage = maxIdeasPerPage
	}
	return filter
}
