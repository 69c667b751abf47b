package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"turansuraetu/internal/config"
	"turansuraetu/internal/engine"
	"turansuraetu/internal/patch"
	"turansuraetu/internal/project"
)

func clearCmd(cfg *config.Config) *cobra.Command {
	var (
		engines []string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "clear [root-file]",
		Short: "Remove machine translations from a project and save it",
		Long: `Resets the machine translation fields of every pair, or of the pairs of
one patch file with --file. --engine limits the reset to the fields written by
the named engines; field names (Google, Bing, Transliteration) are accepted too.
Pairs left without machine translations drop out of the cache on save.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(cfg, args)
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			fields, err := resolveFields(registry, engines)
			if err != nil {
				return err
			}

			store := project.NewStore()
			p, err := openProject(store, path)
			if err != nil {
				return err
			}
			files, err := selectFiles(p, file)
			if err != nil {
				return err
			}

			cleared := 0
			for _, pf := range files {
				for _, pair := range pf.Pairs {
					if clearFields(pair, fields) {
						cleared++
					}
				}
			}
			log.Info().Int("pairs", cleared).Int("files", len(files)).Msg("Machine translations cleared")

			return saveProject(store, p)
		},
	}

	cmd.Flags().StringSliceVarP(&engines, "engine", "e", nil, "Engines or fields to clear (default: all fields)")
	cmd.Flags().StringVar(&file, "file", "", "Only clear this patch file")
	return cmd
}

// resolveFields maps engine or field names onto fields. No names means every field.
func resolveFields(registry *engine.Registry, names []string) ([]patch.Field, error) {
	if len(names) == 0 {
		return patch.Fields, nil
	}
	fields := make([]patch.Field, 0, len(names))
	for _, name := range names {
		if e, ok := registry.Lookup(name); ok {
			fields = append(fields, e.Field())
			continue
		}
		if f, ok := patch.ParseField(name); ok {
			fields = append(fields, f)
			continue
		}
		return nil, fmt.Errorf("unknown engine or field %q", name)
	}
	return fields, nil
}

// clearFields blanks the given fields of pair and reports whether anything was removed.
func clearFields(pair *patch.TranslationPair, fields []patch.Field) bool {
	changed := false
	for _, f := range fields {
		if pair.Machine.Get(f) != "" {
			pair.Machine.Set(f, "")
			changed = true
		}
	}
	return changed
}
