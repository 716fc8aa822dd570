package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/adapters/sampler"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

type synthesizeOptions struct {
	requestFile string
	persist     bool

	sampleFile  string
	dataRoot    string
	sampleDSN   string
	table       string
	columns     []string
	sampleLimit int
}

func newSynthesizeCmd(a *app) *cobra.Command {
	opts := &synthesizeOptions{}
	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Learn finite-list and regex rules from examples",
		Long: `Learns a finite-list rule, an optional regex rule and header patterns from the
examples in a request file, and reports coverage diagnostics against a column
sample read from a CSV file or a database column.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynthesize(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.requestFile, "file", "f", "", "Synthesis request file, YAML or JSON (required)")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Store and index the synthesized rules")
	cmd.Flags().StringVar(&opts.sampleFile, "sample", "", "CSV file holding the column sample")
	cmd.Flags().StringVar(&opts.dataRoot, "data-root", "", "Directory the --sample file is resolved against")
	cmd.Flags().StringVar(&opts.sampleDSN, "sample-dsn", "", "postgres:// or sqlserver:// URL to sample the column from")
	cmd.Flags().StringVar(&opts.table, "table", "", "Table to sample with --sample-dsn, optionally schema-qualified")
	cmd.Flags().StringSliceVar(&opts.columns, "column", nil, "Column header(s) to sample; all columns when omitted")
	cmd.Flags().IntVar(&opts.sampleLimit, "sample-limit", sampler.DefaultLimit, "Maximum number of sampled values")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("sample", "sample-dsn")

	return cmd
}

func runSynthesize(cmd *cobra.Command, a *app, opts *synthesizeOptions) error {
	ctx := cmd.Context()

	req := a.defaultSynthesisRequest()
	if err := readYAMLFile(opts.requestFile, req); err != nil {
		return err
	}
	if opts.persist {
		req.Persist = true
	}

	sample, err := a.readSample(ctx, opts)
	if err != nil {
		return err
	}

	svc, err := a.synthesisService(ctx, req.Persist)
	if err != nil {
		return err
	}
	result, err := svc.Synthesize(ctx, req, sample)
	if err != nil {
		return err
	}
	return a.print(cmd, result)
}

// defaultSynthesisRequest carries the configured synthesis defaults.
func (a *app) defaultSynthesisRequest() *models.SynthesisRequest {
	req := models.DefaultSynthesisRequest()
	s := a.cfg.Synthesis
	if s.FiniteThreshold > 0 {
		req.FiniteThreshold = s.FiniteThreshold
	}
	if s.RegexThreshold > 0 {
		req.RegexThreshold = s.RegexThreshold
	}
	if s.TopKUnmatched > 0 {
		req.TopKUnmatched = s.TopKUnmatched
	}
	if s.MinSamples > 0 {
		req.MinSamples = s.MinSamples
	}
	req.AutoExtend = s.AutoExtend
	return req
}

// readSample returns the column sample selected by the flags. No sample
// source yields an empty sample.
func (a *app) readSample(ctx context.Context, opts *synthesizeOptions) ([]string, error) {
	switch {
	case opts.sampleFile != "":
		path, err := sampler.ResolveCSV(opts.dataRoot, opts.sampleFile)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sample: %w", err)
		}
		defer f.Close()

		values, err := sampler.SampleCSV(f, opts.columns, opts.sampleLimit)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("Read CSV sample",
			zap.String("path", path),
			zap.Strings("columns", opts.columns),
			zap.Int("values", len(values)))
		return values, nil
	case opts.sampleDSN != "":
		return a.sampleColumn(ctx, opts)
	}
	return []string{}, nil
}

func (a *app) sampleColumn(ctx context.Context, opts *synthesizeOptions) ([]string, error) {
	if len(opts.columns) != 1 {
		return nil, fmt.Errorf("--sample-dsn needs exactly one --column")
	}
	ref, err := parseColumnRef(opts.table, opts.columns[0])
	if err != nil {
		return nil, err
	}

	var s sampler.Sampler
	switch scheme := strings.ToLower(strings.SplitN(opts.sampleDSN, "://", 2)[0]); scheme {
	case "postgres", "postgresql":
		s, err = sampler.OpenPostgresSampler(ctx, opts.sampleDSN, a.logger)
	case "sqlserver":
		s, err = sampler.OpenSQLServerSampler(ctx, opts.sampleDSN, a.logger)
	default:
		return nil, fmt.Errorf("unsupported sample source %q (want postgres:// or sqlserver://)", scheme)
	}
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Sample(ctx, ref, opts.sampleLimit)
}

// parseColumnRef splits "schema.table" or "table" and pairs it with column.
func parseColumnRef(table, column string) (sampler.ColumnRef, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return sampler.ColumnRef{}, fmt.Errorf("--table is required with --sample-dsn")
	}
	ref := sampler.ColumnRef{Table: table, Column: strings.TrimSpace(column)}
	if schema, name, ok := strings.Cut(table, "."); ok {
		ref.Schema, ref.Table = schema, name
	}
	return ref, nil
}
