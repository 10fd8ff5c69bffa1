// Package main 语料构建探针：执行一次完整的抓取、切分、向量化并输出构建报告
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/config"
	einoobs "mvx-assistant-api/internal/observability/eino"
	"mvx-assistant-api/internal/wire"
	"mvx-assistant-api/pkg/logger"
)

type options struct {
	configDir string
	sources   []string
	format    string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "corpus-probe",
		Short: "Build the corpus index once and print the ingestion report",
		Long: `Fetches every configured corpus source, splits and embeds the text,
then prints which sources succeeded or failed. Exits non-zero when the build fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.configDir, "config-dir", "", "directory containing config.yaml (default: ./configs)")
	cmd.Flags().StringSliceVar(&opts.sources, "source", nil, "override corpus sources (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "yaml", "report format: yaml or json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	_ = godotenv.Load()

	cfg, err := loadConfig(opts.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(opts.sources) > 0 {
		cfg.Corpus.Sources = opts.sources
	}

	level := cfg.Observability.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	logger.InitWithWriter(os.Stderr, level, cfg.Observability.Logging.Format)
	einoobs.Init()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexer, cleanup, err := wire.InitializeIndexer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize indexer: %w", err)
	}
	defer cleanup()

	report, buildErr := indexer.Rebuild(ctx)
	if err := writeReport(out, opts.format, newProbeReport(report, buildErr)); err != nil {
		return err
	}
	return buildErr
}

func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		return config.Load()
	}
	return config.LoadFrom(dir)
}

// probeReport 面向运维输出的构建报告
type probeReport struct {
	RunID     string             `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Status    string             `yaml:"status" json:"status"`
	Sources   int                `yaml:"sources" json:"sources"`
	Succeeded []string           `yaml:"succeeded,omitempty" json:"succeeded,omitempty"`
	Failed    []probeSourceError `yaml:"failed,omitempty" json:"failed,omitempty"`
	Segments  int                `yaml:"segments" json:"segments"`
	Dimension int                `yaml:"dimension" json:"dimension"`
	Duration  string             `yaml:"duration,omitempty" json:"duration,omitempty"`
	Error     string             `yaml:"error,omitempty" json:"error,omitempty"`
}

type probeSourceError struct {
	Source string `yaml:"source" json:"source"`
	Reason string `yaml:"reason" json:"reason"`
}

func newProbeReport(r *retrieval.IngestReport, err error) *probeReport {
	p := &probeReport{Status: r.Status()}
	if err != nil {
		p.Status = "failed"
		p.Error = err.Error()
	}
	if r == nil {
		return p
	}
	p.RunID = r.RunID
	p.Sources = r.Sources
	p.Succeeded = r.Succeeded
	p.Segments = r.Segments
	p.Dimension = r.Dimension
	p.Duration = r.Duration.String()
	for _, f := range r.Failed {
		p.Failed = append(p.Failed, probeSourceError{Source: f.SourceID, Reason: f.Reason})
	}
	return p
}

func writeReport(w io.Writer, format string, r *probeReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
