package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/services"
)

type draftOptions struct {
	typeName        string
	description     string
	header          string
	positiveValues  []string
	negativeValues  []string
	positiveHeaders []string
	negativeHeaders []string
	requestOut      string
	avoidStored     bool
}

func newDraftCmd(a *app) *cobra.Command {
	opts := &draftOptions{}
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Ask the configured model to draft a semantic type",
		Long: `Drafts a semantic type from a description with the configured text-generation
provider. --request-out writes the draft as a synthesis request that the
synthesize command accepts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraft(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.description, "description", "", "What the column holds (required)")
	cmd.Flags().StringVar(&opts.typeName, "name", "", "Semantic type name to use instead of the drafted one")
	cmd.Flags().StringVar(&opts.header, "header", "", "Column header the type is for")
	cmd.Flags().StringSliceVar(&opts.positiveValues, "positive", nil, "Values that must match")
	cmd.Flags().StringSliceVar(&opts.negativeValues, "negative", nil, "Values that must not match")
	cmd.Flags().StringSliceVar(&opts.positiveHeaders, "positive-header", nil, "Headers that must match")
	cmd.Flags().StringSliceVar(&opts.negativeHeaders, "negative-header", nil, "Headers that must not match")
	cmd.Flags().StringVar(&opts.requestOut, "request-out", "", "Write the draft as a synthesis request file")
	cmd.Flags().BoolVar(&opts.avoidStored, "avoid-stored", false, "Tell the model which names the rule store already holds")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runDraft(cmd *cobra.Command, a *app, opts *draftOptions) error {
	ctx := cmd.Context()

	gen, err := a.llmGenerator()
	if err != nil {
		return err
	}

	req := &models.DraftRequest{
		TypeName:        opts.typeName,
		Description:     opts.description,
		PositiveValues:  opts.positiveValues,
		NegativeValues:  opts.negativeValues,
		PositiveHeaders: opts.positiveHeaders,
		NegativeHeaders: opts.negativeHeaders,
		ColumnHeader:    opts.header,
	}
	if opts.avoidStored {
		store, err := a.ruleStore(ctx)
		if err != nil {
			return err
		}
		rules, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list stored rules: %w", err)
		}
		for _, r := range rules {
			req.ExistingTypes = append(req.ExistingTypes, r.Name)
		}
	}

	draft, err := services.NewDraftGenerator(gen, services.NewDraftParser(), a.logger).Generate(ctx, req)
	if err != nil {
		return err
	}

	if opts.requestOut != "" {
		if err := writeYAMLFile(opts.requestOut, draft.ToRequest()); err != nil {
			return err
		}
		a.logger.Info("Wrote synthesis request",
			zap.String("semantic_type", draft.SemanticType),
			zap.String("path", opts.requestOut))
	}
	return a.print(cmd, draft)
}

func writeYAMLFile(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
