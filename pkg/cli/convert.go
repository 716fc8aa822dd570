package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/services"
)

func newConvertBuiltInsCmd(a *app) *cobra.Command {
	var (
		file string
		save bool
	)
	cmd := &cobra.Command{
		Use:   "convert-builtins",
		Short: "Convert the engine's bundled plugin definitions into rules",
		Long: `Reads the engine's bundled plugin JSON and converts the English and
locale-independent definitions into rules. With --save the rules are written to
the configured rule store, skipping names that are already stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer f.Close()

			rules, err := services.NewBuiltInConverter(a.logger).Convert(f)
			if err != nil {
				return err
			}

			if save {
				ctx := cmd.Context()
				store, err := a.ruleStore(ctx)
				if err != nil {
					return err
				}
				saved := 0
				for _, rule := range rules {
					if _, err := store.Save(ctx, rule); err != nil {
						if errors.Is(err, apperrors.ErrConflict) {
							a.logger.Debug("Built-in rule already stored", zap.String("semantic_type", rule.Name))
							continue
						}
						return fmt.Errorf("save %s: %w", rule.Name, err)
					}
					saved++
				}
				a.logger.Info("Stored built-in rules", zap.Int("saved", saved), zap.Int("converted", len(rules)))
			}
			return a.print(cmd, rulesFile{Rules: rules})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Bundled plugin definitions JSON (required)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the converted rules")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
