package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimilarCmd(a *app) *cobra.Command {
	var (
		description string
		threshold   float64
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find stored semantic types similar to a description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := a.ruleIndex(ctx)
			if err != nil {
				return err
			}
			if idx == nil {
				return fmt.Errorf("similarity index is disabled (index.backend is none)")
			}

			matches, err := idx.FindSimilar(ctx, description, threshold, limit)
			if err != nil {
				return err
			}
			return a.print(cmd, matches)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Description to compare against (required)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity score (default: index.similarity_threshold)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of matches; 0 returns all")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
