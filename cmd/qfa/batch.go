package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/config"
	"github.com/rodekruis/qfa/internal/output"
	"github.com/rodekruis/qfa/internal/output/async"
	"github.com/rodekruis/qfa/internal/output/file"
	"github.com/rodekruis/qfa/internal/output/multi"
	"github.com/rodekruis/qfa/internal/output/stdout"
	"github.com/rodekruis/qfa/internal/output/webhook"
	"github.com/rodekruis/qfa/internal/pipeline"
)

// NewBatchCmd classifies NDJSON feedback against one origin.
func NewBatchCmd() *cobra.Command {
	var (
		of     originFlags
		input  string
		outArg string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify NDJSON feedback ({\"id\",\"text\"} per line) against one taxonomy",
		Long: `Classify many feedback items against one origin's taxonomy. The taxonomy is
resolved once; items are classified concurrently (engine.workers) and one result
per line is written in input order to stdout, the configured file, and the
configured webhook.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := of.origin()
			if err != nil {
				return err
			}
			if err := requireLevels(origin); err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if outArg != "" {
				a.cfg.Output.Path = outArg
			}
			out, err := buildOutput(a.cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			session, err := a.engine.Session(cmd.Context(), origin)
			if err != nil {
				out.Close()
				return err
			}
			p := pipeline.New(session, out, pipeline.WithWorkers(a.cfg.Engine.Workers))
			stats, runErr := p.Run(cmd.Context(), in)
			closeErr := p.Close()
			slog.Info("batch finished", "items", stats.Items, "classified", stats.Classified, "failed", stats.Failed)
			if runErr != nil {
				return runErr
			}
			return closeErr
		},
	}
	of.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "-", "NDJSON input file (\"-\" for stdin)")
	cmd.Flags().StringVarP(&outArg, "output", "o", "", "NDJSON output file (default: output.path or stdout)")
	return cmd
}

// buildOutput assembles the configured destinations. The webhook runs
// behind an async buffer so slow endpoints do not hold up classification.
func buildOutput(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	verbosity, err := output.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, err
	}
	var outs []output.Output
	if cfg.Path != "" {
		f, err := file.New(cfg.Path, verbosity, file.WithMaxSize(cfg.MaxSize))
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	} else {
		outs = append(outs, stdout.NewWriter(w, verbosity, cfg.Pretty))
	}
	if cfg.WebhookURL != "" {
		hook := webhook.New(cfg.WebhookURL, webhook.WithVerbosity(verbosity))
		outs = append(outs, async.New(hook, async.WithOnError(func(err error) {
			slog.Warn("webhook delivery failed", "error", err)
		})))
	}
	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
