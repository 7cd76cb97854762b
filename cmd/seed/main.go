// Seed carga el catalogo de ideas desde un JSON pre-generado (analisis y
// embeddings incluidos) hacia la tabla ideas.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"ossideas/internal/config"
	"ossideas/internal/db"
)

type seedIdea struct {
	RepoFullName     string    `json:"repo_full_name"`
	Name             string    `json:"name"`
	Tagline          string    `json:"tagline"`
	Analysis         string    `json:"analysis"`
	Categories       []string  `json:"categories"`
	License          string    `json:"license"`
	Stars            int       `json:"stars"`
	OpportunityScore int       `json:"opportunity_score"`
	Embedding        []float32 `json:"embedding"`
}

func main() {
	file := flag.String("file", "ideas.json", "path to the generated ideas JSON")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("read seed file", zap.Error(err))
	}
	var ideas []seedIdea
	if err := json.Unmarshal(raw, &ideas); err != nil {
		logger.Fatal("parse seed file", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	const query = `
		INSERT INTO ideas (
			id, repo_full_name, name, tagline, analysis, categories, license,
			stars, opportunity_score, embedding, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (repo_full_name) DO UPDATE SET
			name              = EXCLUDED.name,
			tagline           = EXCLUDED.tagline,
			analysis          = EXCLUDED.analysis,
			categories        = EXCLUDED.categories,
			license           = EXCLUDED.license,
			stars             = EXCLUDED.stars,
			opportunity_score = EXCLUDED.opportunity_score,
			embedding         = EXCLUDED.embedding,
			updated_at        = EXCLUDED.updated_at
	`

	inserted := 0
	for _, idea := range ideas {
		if idea.RepoFullName == "" || idea.Name == "" {
			logger.Warn("skipping idea without repo or name")
			continue
		}
		var embedding interface{}
		if len(idea.Embedding) > 0 {
			embedding = pgvector.NewVector(idea.Embedding)
		}
		_, err := pool.Exec(ctx, query,
			uuid.NewString(),
			idea.RepoFullName,
			idea.Name,
			idea.Tagline,
			idea.Analysis,
			idea.Categories,
			idea.License,
			idea.Stars,
			idea.OpportunityScore,
			embedding,
			time.Now().UTC(),
		)
		if err != nil {
			logger.Fatal("insert idea failed", zap.Error(err), zap.String("repo", idea.RepoFullName))
		}
		inserted++
	}

	logger.Info("seed complete", zap.Int("ideas", inserted))
}
