package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"turansuraetu/internal/batch"
	"turansuraetu/internal/cache"
	"turansuraetu/internal/config"
	"turansuraetu/internal/engine"
	"turansuraetu/internal/patch"
	"turansuraetu/internal/project"
)

func translateCmd(cfg *config.Config) *cobra.Command {
	var (
		engines      []string
		file         string
		untranslated bool
		overwrite    bool
		source       string
		target       string
		dryRun       bool
		pair         int
	)

	cmd := &cobra.Command{
		Use:   "translate [root-file]",
		Short: "Fill machine translations of a project and save it",
		Long: `Runs the selected engines over the pairs of a project. Each engine fills
its own machine translation field; existing values are kept unless --overwrite
is given. --pair N with --file translates only the N-th pair of that file (as
numbered by list) and always overwrites. The project is saved afterwards, which
also rewrites the machine translation cache next to the root file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			from, err := engine.ParseLanguage(source)
			if err != nil {
				return err
			}
			to, err := engine.ParseLanguage(target)
			if err != nil {
				return err
			}

			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			selected, err := registry.Select(engines)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return fmt.Errorf("no engines available")
			}

			if pair != 0 && file == "" {
				return fmt.Errorf("--pair requires --file")
			}

			ctx, cancel := setupContext()
			defer cancel()

			var opts []batch.Option
			if cfg.DatabaseURL != "" {
				pool, store, err := cache.Connect(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				opts = append(opts, batch.WithMemory(cache.NewTranslationMemory(store)))
			}

			projectStore := project.NewStore()
			p, err := openProject(projectStore, path)
			if err != nil {
				return err
			}

			files, err := selectFiles(p, file)
			if err != nil {
				return err
			}
			var pairs []*patch.TranslationPair
			for _, pf := range files {
				pairs = append(pairs, pf.Pairs...)
			}
			if pair != 0 {
				if pair < 1 || pair > len(pairs) {
					return fmt.Errorf("pair %d out of range, %s has %d pairs", pair, file, len(pairs))
				}
				pairs = pairs[pair-1 : pair]
				overwrite = true
			} else if untranslated {
				pairs = batch.Untranslated(pairs)
			}

			names := make([]string, len(selected))
			for i, e := range selected {
				names[i] = e.Name()
			}
			log.Info().
				Strs("engines", names).
				Int("pairs", len(pairs)).
				Str("from", string(from)).
				Str("to", string(to)).
				Bool("overwrite", overwrite).
				Msg("Starting batch translation")

			runner := batch.NewRunner(selected, from, to, opts...)
			done := 0
			total := len(pairs) * len(selected)
			summary := runner.Translate(ctx, pairs, overwrite, func(ev batch.Event) {
				done++
				if done%50 == 0 || done == total {
					log.Info().Int("done", done).Int("total", total).Msg("Translating")
				}
			})

			log.Info().
				Int("translated", summary.Translated).
				Int("remembered", summary.Remembered).
				Int("skipped", summary.Skipped).
				Int("failed", summary.Failed).
				Int("empty", summary.Empty).
				Msg("Batch translation complete")

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if dryRun {
				printInfo(cmd.OutOrStdout(), p)
				return nil
			}
			return saveProject(projectStore, p)
		},
	}

	cmd.Flags().StringSliceVarP(&engines, "engine", "e", cfg.Engines, "Engines to run (default: all available)")
	cmd.Flags().StringVar(&file, "file", "", "Only translate this patch file")
	cmd.Flags().BoolVar(&untranslated, "untranslated", false, "Only translate pairs without a translation")
	cmd.Flags().BoolVar(&overwrite, "overwrite", cfg.Overwrite, "Replace existing machine translations")
	cmd.Flags().StringVar(&source, "source", cfg.SourceLanguage, "Source language (ja, en)")
	cmd.Flags().StringVar(&target, "target", cfg.TargetLanguage, "Target language (ja, en)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not save the project")
	cmd.Flags().IntVar(&pair, "pair", 0, "Only translate this pair of --file (1-based), overwriting")

	return cmd
}

// buildRegistry registers the engines available under cfg.
func buildRegistry(cfg *config.Config) (*engine.Registry, error) {
	engines := []engine.Engine{engine.NewTransliterator()}

	if cfg.GeminiAPIKey != "" {
		gemini := engine.NewGemini(cfg.GeminiAPIKey, cfg.TranslationModel)
		engines = append([]engine.Engine{engine.WithBreaker(gemini, engine.BreakerSettings{
			Failures: uint32(max(cfg.BreakerFailures, 1)),
			Timeout:  cfg.BreakerTimeout,
		})}, engines...)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, Gemini translation will be unavailable")
	}

	return engine.NewRegistry(engines...)
}
