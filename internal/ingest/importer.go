package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

// Options controls how parsed quizzes are attached to the catalog.
type Options struct {
	Tag       string
	Category  string
	CreatorID int64
}

// Import stores parsed quizzes under the named tag, creating the tag when it
// does not exist yet. It stops at the first failure and returns the quizzes
// stored so far.
func Import(ctx context.Context, catalog *app.CatalogService, quizzes []domain.Quiz, opts Options) ([]domain.Quiz, error) {
	if opts.Category == "" {
		opts.Category = "anime"
	}
	tag, err := catalog.EnsureTag(ctx, opts.Tag, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("ensure tag %q: %w", opts.Tag, err)
	}

	stored := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		q.TagID = tag.ID
		q.CreatorID = opts.CreatorID
		if err := catalog.CreateQuiz(ctx, &q); err != nil {
			return stored, fmt.Errorf("create quiz %q: %w", q.Title, err)
		}
		log.Info().Int64("quiz_id", q.ID).Str("title", q.Title).
			Int("questions", len(q.Questions)).Msg("quiz imported")
		stored = append(stored, q)
	}
	return stored, nil
}
