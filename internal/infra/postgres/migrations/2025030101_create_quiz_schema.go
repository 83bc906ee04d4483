package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed create_quiz_schema.up.sql
var quizSchemaUp string

//go:embed create_quiz_schema.down.sql
var quizSchemaDown string

// Migrations holds the quiz schema migrations in apply order.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, quizSchemaUp)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, quizSchemaDown)
			return err
		},
	)
}
