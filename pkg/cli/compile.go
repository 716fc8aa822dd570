package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/plugin"
)

// rulesFile is a batch of rules to compile.
type rulesFile struct {
	Rules []*models.SemanticTypeRule `json:"rules" yaml:"rules"`
}

type compileOptions struct {
	file        string
	outDir      string
	fromStore   bool
	metricsFile string
	dryRun      bool
}

func newCompileCmd(a *app) *cobra.Command {
	opts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile rules into engine plugins and register them",
		Long: `Compiles each rule into an engine plugin and registers it on its own, so one
bad rule never stops the batch. Plugins are written to --out (default: the
configured engine.plugin_dir). Rules come from a file or the rule store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Rules file with a top-level rules list")
	cmd.Flags().BoolVar(&opts.fromStore, "from-store", false, "Compile every rule in the configured rule store")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Plugin output directory")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Compile without writing plugin files")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write registration counters to this file in textfile format")
	cmd.MarkFlagsOneRequired("file", "from-store")
	cmd.MarkFlagsMutuallyExclusive("file", "from-store")
	cmd.MarkFlagsMutuallyExclusive("out", "dry-run")

	return cmd
}

func runCompile(cmd *cobra.Command, a *app, opts *compileOptions) error {
	ctx := cmd.Context()

	rules, err := a.loadRules(cmd, opts)
	if err != nil {
		return err
	}

	var registrar plugin.Registrar
	if opts.dryRun {
		registrar = plugin.NewMemoryRegistrar()
	} else {
		dir := opts.outDir
		if dir == "" {
			dir = a.cfg.Engine.PluginDir
		}
		if registrar, err = plugin.NewDirectoryRegistrar(dir, a.logger); err != nil {
			return err
		}
	}

	report := a.compiler().RegisterAll(ctx, registrar, rules)
	if opts.metricsFile != "" {
		if err := a.metrics.WriteToTextfile(opts.metricsFile); err != nil {
			return err
		}
		a.logger.Debug("Wrote metrics", zap.String("path", opts.metricsFile))
	}

	if err := a.print(cmd, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d rules failed to register", report.Failed, len(rules))
	}
	return nil
}

func (a *app) loadRules(cmd *cobra.Command, opts *compileOptions) ([]*models.SemanticTypeRule, error) {
	if opts.fromStore {
		store, err := a.ruleStore(cmd.Context())
		if err != nil {
			return nil, err
		}
		return store.List(cmd.Context())
	}

	var in rulesFile
	if err := readYAMLFile(opts.file, &in); err != nil {
		return nil, err
	}
	return in.Rules, nil
}
