package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// validationFile is a rule together with the examples it is checked against.
type validationFile struct {
	Rule           *models.SemanticTypeRule `yaml:"rule"`
	PositiveValues []string                 `yaml:"positive_values"`
	NegativeValues []string                 `yaml:"negative_values"`
}

type validationReport struct {
	SemanticType   string                   `json:"semantic_type" yaml:"semantic_type"`
	StructureError string                   `json:"structure_error,omitempty" yaml:"structure_error,omitempty"`
	Result         *models.ValidationResult `json:"result" yaml:"result"`
}

func newValidateCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a rule against positive and negative examples",
		Long: `Reads a file with a rule and example values, checks the rule's structure and
reports which examples it matches. Exits non-zero when the rule is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in validationFile
			if err := readYAMLFile(file, &in); err != nil {
				return err
			}
			if in.Rule == nil {
				return fmt.Errorf("%s has no rule", file)
			}

			validator := a.validator()
			report := validationReport{SemanticType: in.Rule.Name}
			if err := validator.ValidateStructure(in.Rule); err != nil {
				report.StructureError = err.Error()
			}
			report.Result = validator.Validate(in.Rule, in.PositiveValues, in.NegativeValues)
			valid := report.StructureError == "" && report.Result.Valid
			a.metrics.ObserveValidation(string(in.Rule.Kind), valid)

			if err := a.print(cmd, report); err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("rule %s is not valid", in.Rule.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Rule file with rule, positive_values and negative_values (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
