package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"oshiquiz/internal/app"
	"oshiquiz/internal/infra/memory"
	"oshiquiz/internal/ingest"
)

// NewIngestCmd imports a quiz book into the catalog.
func NewIngestCmd(configPath *string) *cobra.Command {
	var (
		opts   ingest.Options
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Parse a quiz book and store its quizzes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := ingest.Parse(f)
			if err != nil {
				return err
			}
			log.Info().Int("quizzes", len(res.Quizzes)).Int("dropped_questions", res.Dropped).Msg("quiz book parsed")

			if dryRun {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Quizzes)
			}
			if opts.Tag == "" {
				return fmt.Errorf("--tag is required unless --dry-run is set")
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			catalog := app.NewCatalogService(store, memory.NewCatalogCache(store, 0), store)
			stored, err := ingest.Import(cmd.Context(), catalog, res.Quizzes, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quizzes\n", len(stored))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "tag name the quizzes belong to (created when missing)")
	cmd.Flags().StringVar(&opts.Category, "category", "anime", "category for a newly created tag")
	cmd.Flags().Int64Var(&opts.CreatorID, "creator", 1, "creator user id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the parsed quizzes as JSON instead of storing them")
	return cmd
}
