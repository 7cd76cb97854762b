package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// Idea es un analisis pre-generado de oportunidad de negocio sobre un
// repositorio open source. El embedding permite buscar ideas relacionadas.
type Idea struct {
	ID               string          `json:"id"`
	RepoFullName     string          `json:"repo_full_name"`
	Name             string          `json:"name"`
	Tagline          string          `json:"tagline,omitempty"`
	Analysis         string          `json:"analysis,omitempty"`
	Categories       []string        `json:"categories,omitempty"`
	License          string          `json:"license,omitempty"`
	Stars            int             `json:"stars"`
	OpportunityScore int             `json:"opportunity_score"`
	Embedding        pgvector.Vector `json:"-"`
	HasEmbedding     bool            `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Ordenes de listado soportados por el catalogo.
const (
	IdeaSortScore  = "score"
	IdeaSortStars  = "stars"
	IdeaSortNewest = "newest"
)

// IdeaFilter describe busqueda, filtros y paginacion del catalogo.
type IdeaFilter struct {
	Search     string
	Categories []string
	MinStars   int
	Sort       string
	Page       int
	PerPage    int
}

// IdeaPage es una pagina de resultados junto al total sin paginar.
type IdeaPage struct {
	Items   []Idea `json:"items"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}
