package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"turansuraetu/internal/cache"
	"turansuraetu/internal/config"
	"turansuraetu/internal/patch"
	"turansuraetu/internal/project"
	"turansuraetu/internal/textutil"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := NewRootCommand(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree around cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "turansuraetu",
		Short:        "Edit RPG Maker Trans patch projects",
		Long:         "Reads, machine-translates and writes back RPG Maker Trans v3 patch projects without losing data.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(validateCmd(cfg))
	rootCmd.AddCommand(infoCmd(cfg))
	rootCmd.AddCommand(listCmd(cfg))
	rootCmd.AddCommand(normalizeCmd(cfg))
	rootCmd.AddCommand(translateCmd(cfg))
	rootCmd.AddCommand(clearCmd(cfg))
	rootCmd.AddCommand(exportCmd(cfg))

	return rootCmd
}

// projectPath picks the root file from args or the configured default.
func projectPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.ProjectPath != "" {
		return cfg.ProjectPath, nil
	}
	return "", errors.New("no project given and TRANSURAETU_PROJECT is not set")
}

func validateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [root-file]",
		Short: "Check that a file is a patch project root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			if err := project.ValidateRoot(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid project root\n", path)
			return nil
		},
	}
}

func infoCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info [root-file]",
		Short: "Summarize the patch files of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			p, err := openProject(project.NewStore(), path)
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func printInfo(w io.Writer, p *patch.Project) {
	var pairs, translated, machine int
	for _, pf := range p.Files() {
		var ft, fm int
		for _, pair := range pf.Pairs {
			if !textutil.IsBlank(pair.Translation) {
				ft++
			}
			if !pair.Machine.IsEmpty() {
				fm++
			}
		}
		fmt.Fprintf(w, "%-40s %6d pairs %6d translated %6d machine\n", pf.Name, len(pf.Pairs), ft, fm)
		pairs += len(pf.Pairs)
		translated += ft
		machine += fm
	}
	fmt.Fprintf(w, "%-40s %6d pairs %6d translated %6d machine\n", fmt.Sprintf("total (%d files)", p.Len()), pairs, translated, machine)
}

func listCmd(cfg *config.Config) *cobra.Command {
	var file string
	var untranslated bool

	cmd := &cobra.Command{
		Use:   "list [root-file]",
		Short: "Print the pairs of a project with their context",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			p, err := openProject(project.NewStore(), path)
			if err != nil {
				return err
			}
			files, err := selectFiles(p, file)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, pf := range files {
				for i, pair := range pf.Pairs {
					if untranslated && !textutil.IsBlank(pair.Translation) {
						continue
					}
					fmt.Fprintf(w, "%s #%d [%s]\n  original:    %q\n  translation: %q\n", pf.Name, i+1, pair.ContextPreview(), pair.Original(), pair.Translation)
					for _, f := range patch.Fields {
						if pair.Machine.Has(f) {
							fmt.Fprintf(w, "  %-12s %q\n", string(f)+":", pair.Machine.Get(f))
						}
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Only list this patch file")
	cmd.Flags().BoolVar(&untranslated, "untranslated", false, "Only list pairs without a translation")
	return cmd
}

func normalizeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [root-file]",
		Short: "Open and save a project, rewriting every patch file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			store := project.NewStore()
			p, err := openProject(store, path)
			if err != nil {
				return err
			}
			return saveProject(store, p)
		},
	}
}

func exportCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [root-file]",
		Short: "Print the machine translations of a project as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			p, err := openProject(project.NewStore(), path)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(cache.RebuildProject(p), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal machine translations: %w", err)
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			log.Info().Str("output", output).Msg("Machine translations exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func selectFiles(p *patch.Project, name string) ([]*patch.PatchFile, error) {
	if name == "" {
		return p.Files(), nil
	}
	pf, ok := p.File(name)
	if !ok {
		return nil, fmt.Errorf("patch file %q not found in project", name)
	}
	return []*patch.PatchFile{pf}, nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
