// Package cli implements the semantic type rule engine commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/config"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/metrics"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
)

// Output formats accepted by --output.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	return newRootCommand(&app{version: version})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "semtypes",
		Short:         "Synthesize, validate and compile semantic type rules",
		Long:          "Learns semantic type rules from examples, checks them against examples and column samples, and compiles them into classification engine plugins.",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: "+config.DefaultPath+")")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputJSON, "Output format: json or yaml")

	root.AddCommand(
		newSynthesizeCmd(a),
		newValidateCmd(a),
		newCompileCmd(a),
		newConvertBuiltInsCmd(a),
		newDraftCmd(a),
		newSimilarCmd(a),
	)
	return root
}

// setup loads configuration and the ambient collaborators every command
// shares. Fields already set are kept.
func (a *app) setup() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		logger, err := logging.NewLogger(a.cfg.Env, a.cfg.LogLevel)
		if err != nil {
			return err
		}
		a.logger = logger
		a.closers = append(a.closers, func() error {
			_ = logger.Sync()
			return nil
		})
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.cache == nil {
		cache, err := patterns.NewCache(a.cfg.Synthesis.RegexCacheSize)
		if err != nil {
			return err
		}
		a.cache = cache
	}
	if a.output != outputJSON && a.output != outputYAML {
		return fmt.Errorf("unknown output format %q (want json or yaml)", a.output)
	}

	a.logger.Debug("Configuration loaded",
		zap.String("env", a.cfg.Env),
		zap.String("storage", a.cfg.Storage.Backend),
		zap.String("index", a.cfg.Index.Backend),
		zap.String("llm_provider", a.cfg.LLM.Provider))
	return nil
}

// close releases everything opened during the command, last opened first.
func (a *app) close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// print writes v to the command's output in the selected format.
func (a *app) print(cmd *cobra.Command, v any) error {
	return writeOutput(cmd.OutOrStdout(), a.output, v)
}

func writeOutput(w io.Writer, format string, v any) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// readYAMLFile decodes path into v. JSON files decode too.
func readYAMLFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s is empty", path)
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
